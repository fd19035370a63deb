package billing

import (
	"github.com/makoban/koubo-navi/internal/billing/repository"
	"github.com/makoban/koubo-navi/internal/billing/service"
	"github.com/makoban/koubo-navi/internal/billing/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	stripe.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
