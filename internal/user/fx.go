package user

import (
	"github.com/makoban/koubo-navi/internal/user/repository"
	"github.com/makoban/koubo-navi/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
