package mock

//go:generate go install github.com/golang/mock/mockgen@v1.6.0
//go:generate mockgen -package mock -destination ./store.mock.go github.com/zitadel/dynconfig/pkg/idp Store,Lister,Writer
//go:generate mockgen -package mock -destination ./kind.mock.go github.com/zitadel/dynconfig/pkg/idp ProviderKind
