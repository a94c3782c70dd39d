package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/creativespace/internal/app"
	"github.com/mdouchement/creativespace/internal/model"
	"github.com/mdouchement/creativespace/internal/server/middlewares"
	"github.com/mdouchement/creativespace/internal/store"
	"github.com/sirupsen/logrus"
)

// An IOC is an Iversion Of Control pattern used to init the server package.
type IOC struct {
	Version string
	App     *app.App
	// Inbox collects the notifications served by /notifications.
	Inbox  *app.Inbox
	Logger logrus.FieldLogger
	// MaxUploadSize is the maximum size of a request body, echo's format (e.g. 50M).
	MaxUploadSize string
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl IOC) *echo.Echo {
	if ctrl.Logger == nil {
		ctrl.Logger = logrus.New()
	}
	if ctrl.Inbox == nil {
		ctrl.Inbox = app.NewInbox(0)
	}
	if ctrl.MaxUploadSize == "" {
		ctrl.MaxUploadSize = "64M"
	}

	engine := echo.New()
	engine.HideBanner = true
	engine.HidePort = true
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())
	engine.Use(middleware.BodyLimit(ctrl.MaxUploadSize))

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	engine.Validator = store.NewValidator()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler(ctrl.Logger)

	////////////
	// Router //
	////////////

	router := engine.Group("")
	restricted := router.Group("/me", middlewares.CurrentUser(ctrl.App))

	// generic handlers
	//
	version := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	}
	router.GET("/", version)
	router.GET("/version", version)
	router.GET("/notifications", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ctrl.Inbox.Drain())
	})
	router.GET("/open", func(c echo.Context) error {
		link, err := ctrl.App.ResolveDeepLink(c.QueryString())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, link)
	})

	//
	// item handlers
	//
	item := &item{app: ctrl.App}
	router.GET("/items", item.List)
	router.POST("/items", item.Upload)
	router.DELETE("/items", item.Clear)
	router.PATCH("/items/:id", item.Update)
	router.DELETE("/items/:id", item.Delete)
	router.POST("/items/:id/like", item.Like)
	router.POST("/items/:id/view", item.View)
	router.POST("/items/:id/save", item.Save)
	router.POST("/items/:id/comments", item.Comment)
	router.DELETE("/items/:id/comments/:comment", item.Uncomment)
	router.GET("/blobs/:id", item.Blob)

	//
	// viewer handlers
	//
	router.GET("/viewer", item.Viewer)
	router.POST("/viewer", item.Open)
	router.POST("/viewer/next", item.Next)
	router.POST("/viewer/prev", item.Prev)
	router.DELETE("/viewer", item.Close)

	//
	// config handlers
	//
	config := &config{app: ctrl.App}
	router.GET("/config", config.Show)
	router.PUT("/config", config.Update)
	router.PUT("/config/photo", config.UpdatePhoto)
	router.DELETE("/config/photo", config.DeletePhoto)

	//
	// auth handlers
	//
	auth := &auth{app: ctrl.App}
	router.POST("/auth/sign_up", auth.Register)
	router.POST("/auth/sign_in", auth.Login)
	router.POST("/auth/google", auth.Google)
	router.POST("/auth/sign_out", auth.Logout)
	restricted.GET("", auth.Show)
	restricted.PATCH("", auth.Update)
	restricted.POST("/password", auth.UpdatePassword)

	//
	// user handlers
	//
	user := &user{app: ctrl.App}
	router.GET("/users", user.Search)
	router.GET("/users/:email", user.Show)

	//
	// story handlers
	//
	story := &story{app: ctrl.App}
	router.GET("/stories", story.List)
	router.POST("/stories", story.Create)
	router.PATCH("/stories/:id", story.Update)
	router.DELETE("/stories/:id", story.Delete)
	router.POST("/stories/:id/watched", story.Watched)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentUser(c echo.Context) *model.User {
	user, ok := c.Get(middlewares.CurrentUserContextKey).(*model.User)
	if ok {
		return user
	}
	return nil
}
