package mock

//go:generate go install github.com/golang/mock/mockgen@v1.6.0
//go:generate mockgen -package mock -destination ./storage.mock.go github.com/zitadel/dynconfig/pkg/op ClientStore,ClientReader
//go:generate mockgen -package mock -destination ./validator.mock.go github.com/zitadel/dynconfig/pkg/op CustomRegistrationValidator
