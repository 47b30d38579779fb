package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/coursecomb/pkg/combinator"
	"github.com/limaJavier/coursecomb/pkg/export"
	"github.com/limaJavier/coursecomb/pkg/filter"
	"github.com/limaJavier/coursecomb/pkg/model"
	"github.com/limaJavier/coursecomb/pkg/share"
)

const (
	msgNoCombination = "no combination satisfies the query"
	msgTimeout       = "the query took too long, try with fewer codes"
	defaultWeeks     = 16
)

// FixedRequest accepts both ["CODE", position] and {"code": "CODE", "position": position}
type FixedRequest combinator.Fixed

func (fixed *FixedRequest) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("a fixed section is a [code, position] pair, got %v elements", len(pair))
		}
		if err := json.Unmarshal(pair[0], &fixed.Code); err != nil {
			return err
		}
		return json.Unmarshal(pair[1], &fixed.Position)
	}

	var object struct {
		Code     string `json:"code"`
		Position int    `json:"position"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	fixed.Code, fixed.Position = object.Code, object.Position
	return nil
}

type CombineRequest struct {
	Fix  []FixedRequest `json:"fix"`
	Req  []string       `json:"req"`
	Sel  []string       `json:"sel"`
	Rank int            `json:"rank"` // Overrides the configured rank limit when positive
}

type ShareRequest struct {
	Comb []uint64 `json:"comb" binding:"required"`
}

func (s *Server) Combine(c *gin.Context) {
	var request CombineRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "malformed query: "+err.Error())
		return
	}

	if err := s.policy.Check(request.Req, request.Sel); errors.Is(err, filter.ErrRejected) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	fixed := lo.Map(request.Fix, func(f FixedRequest, _ int) combinator.Fixed {
		return combinator.Fixed(f)
	})

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	combinations, err := combinator.CombineContext(ctx, s.combinator, fixed, request.Req, request.Sel)
	switch {
	case errors.Is(err, combinator.ErrInvalidQuery):
		fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, combinator.ErrTimeout):
		c.Error(err)
		fail(c, http.StatusServiceUnavailable, msgTimeout)
		return
	case err != nil:
		c.Error(err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	case combinations == nil:
		fail(c, http.StatusOK, msgNoCombination)
		return
	}

	limit := s.rankLimit
	if request.Rank > 0 {
		limit = request.Rank
	}
	total := len(combinations)
	if limit > 0 {
		combinations = combinator.Rank(s.combinator, combinations, limit)
	}

	s.logger.Debug("combinations found",
		zap.Int("total", total),
		zap.Int("returned", len(combinations)),
		zap.Duration("elapsed", time.Since(start)),
	)
	ok(c, Response{Comb: combinations})
}

func (s *Server) Share(c *gin.Context) {
	var request ShareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		fail(c, http.StatusBadRequest, "malformed share request: "+err.Error())
		return
	}

	if _, err := s.lookup(request.Comb); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	key, err := s.store.Save(c.Request.Context(), request.Comb)
	if errors.Is(err, share.ErrEmpty) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	} else if err != nil {
		c.Error(err)
		fail(c, http.StatusInternalServerError, "cannot share the combination")
		return
	}

	ok(c, Response{Key: key})
}

func (s *Server) LoadShare(c *gin.Context) {
	ids, err := s.store.Load(c.Request.Context(), c.Param("key"))
	if errors.Is(err, share.ErrNotFound) {
		fail(c, http.StatusNotFound, err.Error())
		return
	} else if err != nil {
		c.Error(err)
		fail(c, http.StatusInternalServerError, "cannot load the combination")
		return
	}

	ok(c, Response{Comb: [][]uint64{ids}})
}

func (s *Server) Catalog(c *gin.Context) {
	ok(c, Response{Sections: lo.Map(s.sections, func(section model.Section, _ int) SectionResponse {
		return SectionResponse{
			Id:        section.Id,
			Code:      section.Code,
			Number:    section.Number,
			Name:      section.Name,
			Professor: section.Professor,
			Credit:    section.Credit,
			TimePlace: section.TimePlace,
			Rooms:     section.Rooms,
		}
	})})
}

// Export renders the sections listed in ?ids=1,2,3 as ics or xlsx
func (s *Server) Export(c *gin.Context) {
	ids, err := parseIds(c.Query("ids"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	sections, err := s.lookup(ids)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	switch c.Param("format") {
	case "ics":
		start := time.Now()
		if raw := c.Query("start"); raw != "" {
			if start, err = time.Parse(time.DateOnly, raw); err != nil {
				fail(c, http.StatusBadRequest, "start must look like 2006-01-02")
				return
			}
		}
		weeks := defaultWeeks
		if raw := c.Query("weeks"); raw != "" {
			if weeks, err = strconv.Atoi(raw); err != nil || weeks <= 0 {
				fail(c, http.StatusBadRequest, "weeks must be a positive number")
				return
			}
		}

		content, err := export.Calendar(sections, start, weeks)
		if err != nil {
			c.Error(err)
			fail(c, http.StatusInternalServerError, "cannot build the calendar")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="timetable.ics"`)
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(content))
	case "xlsx":
		content, err := export.Workbook(sections, c.DefaultQuery("title", "Timetable"))
		if err != nil {
			c.Error(err)
			fail(c, http.StatusInternalServerError, "cannot build the workbook")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="timetable.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
	default:
		fail(c, http.StatusBadRequest, fmt.Sprintf("unknown export format %q", c.Param("format")))
	}
}

func (s *Server) lookup(ids []uint64) ([]model.Section, error) {
	if len(ids) == 0 {
		return nil, share.ErrEmpty
	}
	sections := make([]model.Section, 0, len(ids))
	for _, id := range ids {
		section, found := s.catalog[id]
		if !found {
			return nil, fmt.Errorf("unknown section %v", id)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func parseIds(raw string) ([]uint64, error) {
	if raw == "" {
		return nil, errors.New("ids cannot be empty")
	}
	ids := make([]uint64, 0)
	for _, field := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid section id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
