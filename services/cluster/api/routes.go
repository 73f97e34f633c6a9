// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the clustering routes with the router.
//
// Description:
//
//	Registers all /v1/cluster/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/cluster/analyze - Cluster a call graph into modules
//	POST /v1/cluster/coupling - Class coupling edges of a call graph
//	GET  /v1/cluster/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	cluster := rg.Group("/cluster")
	{
		cluster.POST("/analyze", handlers.HandleAnalyze)
		cluster.POST("/coupling", handlers.HandleCoupling)
		cluster.GET("/health", handlers.HandleHealth)
	}
}
