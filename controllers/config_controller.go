package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// ConfigController exposes the public metadata clients need to render forms
// and filters without hardcoding enum values.
type ConfigController struct{}

func NewConfigController() *ConfigController {
	return &ConfigController{}
}

// Public returns categories, feed scopes, admin statuses and the empathy
// threshold.
func (c *ConfigController) Public(ctx *gin.Context) {
	statuses := make([]gin.H, 0, len(models.AdminStatuses))
	for _, s := range models.AdminStatuses {
		statuses = append(statuses, gin.H{"value": s, "label": models.StatusLabel(s)})
	}

	utils.Success(ctx, gin.H{
		"categories":        models.Categories,
		"scopes":            []string{"city", "district", "neighborhood"},
		"admin_statuses":    statuses,
		"empathy_threshold": config.Get().EmpathyThreshold,
	})
}
