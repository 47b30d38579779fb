package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/coursecomb/config"
	"github.com/limaJavier/coursecomb/pkg/combinator"
	"github.com/limaJavier/coursecomb/pkg/filter"
	"github.com/limaJavier/coursecomb/pkg/model"
	"github.com/limaJavier/coursecomb/pkg/share"
)

const maxBodyBytes = 64 << 10

// Server answers combination queries over a catalog loaded once at startup
type Server struct {
	sections   []model.Section
	catalog    map[uint64]model.Section
	combinator combinator.Combinator
	store      share.Store
	policy     filter.Policy
	timeout    time.Duration
	rankLimit  int
	origins    []string
	logger     *zap.Logger
}

func New(cfg *config.Config, sections []model.Section, comb combinator.Combinator, store share.Store, logger *zap.Logger) *Server {
	timeout := cfg.Server.QueryTimeout
	if timeout <= 0 {
		timeout = combinator.DefaultTimeout
	}

	return &Server{
		sections: sections,
		catalog: lo.SliceToMap(sections, func(section model.Section) (uint64, model.Section) {
			return section.Id, section
		}),
		combinator: comb,
		store:      store,
		policy:     filter.NewPolicy(&cfg.Filter),
		timeout:    timeout,
		rankLimit:  cfg.Rank.Limit,
		origins:    cfg.Server.CORS.AllowOrigins,
		logger:     logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(s.logger))
	r.Use(CORS(s.origins))
	r.Use(func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sections": len(s.sections), "slots": s.combinator.Slots()})
	})

	r.POST("/comb", s.Combine)
	r.POST("/share", s.Share)
	r.GET("/share/:key", s.LoadShare)
	r.GET("/catalog", s.Catalog)
	r.GET("/export/:format", s.Export)

	return r
}
