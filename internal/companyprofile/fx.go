package companyprofile

import (
	"github.com/makoban/koubo-navi/internal/companyprofile/repository"
	"github.com/makoban/koubo-navi/internal/companyprofile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("companyprofile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
