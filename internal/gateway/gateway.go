package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"food-order-service/internal/config"
	"food-order-service/internal/middleware"
)

type route struct {
	config.Route
	proxy *httputil.ReverseProxy
}

type Gateway struct {
	routes []route
	logger *zap.Logger
	router *gin.Engine
}

func NewGateway(routes []config.Route, logger *zap.Logger) (*Gateway, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	g := &Gateway{logger: logger, router: router}
	for _, r := range routes {
		target, err := url.Parse(r.Target)
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("invalid upstream %q for %s", r.Target, r.Prefix)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = g.upstreamError(r.Prefix)
		g.routes = append(g.routes, route{Route: r, proxy: proxy})
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.NoRoute(g.forward)
	return g, nil
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// match elige la regla más específica (prefijo + sufijo más largos).
func (g *Gateway) match(path string) *route {
	var best *route
	bestLen := -1
	for i := range g.routes {
		r := &g.routes[i]
		if path != r.Prefix && !strings.HasPrefix(path, strings.TrimSuffix(r.Prefix, "/")+"/") {
			continue
		}
		if r.Suffix != "" && !strings.HasSuffix(strings.TrimSuffix(path, "/"), r.Suffix) {
			continue
		}
		if n := len(r.Prefix) + len(r.Suffix); n > bestLen {
			best, bestLen = r, n
		}
	}
	return best
}

func (g *Gateway) forward(c *gin.Context) {
	r := g.match(c.Request.URL.Path)
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no upstream for path"})
		return
	}
	r.proxy.ServeHTTP(c.Writer, c.Request)
}

func (g *Gateway) upstreamError(prefix string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, req *http.Request, err error) {
		g.logger.Error("upstream unreachable",
			zap.String("prefix", prefix),
			zap.String("path", req.URL.Path),
			zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
	}
}
