package apimapv1

import (
	"context"

	"github.com/fulldump/ndmf/service"
)

const ContextServicerKey = "5d3c29a2-8f0e-4a51-9b7e-3f6c1d0a7e44"

func SetServicer(ctx context.Context, s service.Servicer) context.Context {
	return context.WithValue(ctx, ContextServicerKey, s)
}

func GetServicer(ctx context.Context) service.Servicer {
	return ctx.Value(ContextServicerKey).(service.Servicer) // TODO: can raise panic :D
}
