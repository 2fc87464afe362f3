// Package server wires the HTTP API onto a gin engine.
package server

import (
	"embed"
	"html/template"
	"net/http"

	"postdesk/pkg/config"
	"postdesk/pkg/handlers"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

const sessionName = "postdesk"

// NewRouter builds the engine. Everything except the login flow requires an
// authenticated session.
func NewRouter(store sessions.Store) *gin.Engine {
	r := gin.Default()
	r.Use(sessions.Sessions(sessionName, store))

	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))
	r.Static(config.PreviewURL, config.PublicPath)

	r.GET("/login", handlers.LoginPage)
	r.GET("/login/github", handlers.GithubLogin)
	r.GET("/auth/callback", handlers.AuthCallback)
	r.GET("/logout", handlers.Logout)

	authorized := r.Group("/")
	authorized.Use(handlers.AuthRequired)
	{
		authorized.GET("/", func(c *gin.Context) {
			c.HTML(http.StatusOK, "index.html", gin.H{"PreviewURL": config.PreviewURL})
		})

		api := authorized.Group("/api")
		RegisterAPI(api)
	}

	return r
}

// RegisterAPI mounts the content API on g.
func RegisterAPI(g gin.IRoutes) {
	g.GET("/posts", handlers.ListArticles)
	g.GET("/post", handlers.GetArticle)
	g.POST("/post", handlers.SaveArticle)
	g.POST("/create", handlers.CreateArticle)
	g.POST("/diff", handlers.GetDiff)
	g.GET("/tags", handlers.ListTags)
	g.GET("/lint", handlers.LintPosts)
	g.POST("/preview", handlers.PreviewBody)
	g.GET("/config", handlers.GetConfig)
	g.GET("/media", handlers.ListMedia)
	g.POST("/media", handlers.UploadMedia)
	g.DELETE("/media", handlers.DeleteMedia)
	g.GET("/media/raw", handlers.ServeMediaRaw)
	g.POST("/build", handlers.HandleBuild)
	g.POST("/sync", handlers.HandleSync)
	g.POST("/publish", handlers.HandlePublish)
}
