package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docreview-backend/internal/server"
)

func wireRouter(handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:    handlerset.Auth,
		AuthMiddleware: middlewareset.Auth,
		ReviewHandler:  handlerset.Review,
		FileHandler:    handlerset.File,
		FolderHandler:  handlerset.Folder,
		StreamHandler:  handlerset.Stream,
		SocketHandler:  handlerset.Socket,
	})
}
