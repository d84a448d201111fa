package main

import (
	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/routes"
	"github.com/dongnelab/dongbo/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Empathy{},
		&models.Notification{},
		&models.EmpathyThresholdEvent{},
		&models.AdminLog{},
		&models.UploadedImage{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
