package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dshills/querystorm/internal/assist"
	"github.com/dshills/querystorm/internal/console"
	"github.com/dshills/querystorm/internal/engine/history"
	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/engine/preview"
)

// Apply modes for POST /suggest.
const (
	applyPreview = "preview"
	applyDirect  = "direct"
)

type statusResponse struct {
	console.Status
	Diff *diffResponse `json:"diff,omitempty"`
}

type diffResponse struct {
	preview.PreviewingDiff
	Unified string `json:"unified"`
}

type resultResponse struct {
	Result preview.Result `json:"result"`
	Status statusResponse `json:"status"`
}

type suggestRequest struct {
	Prompt   string `json:"prompt"`
	Producer string `json:"producer"`
	Apply    string `json:"apply"`
}

type suggestResponse struct {
	Producer     string             `json:"producer"`
	Modification patch.Modification `json:"modification"`
	Status       statusResponse     `json:"status"`
}

func newStatusResponse(c *console.Console) statusResponse {
	st := c.Status()
	resp := statusResponse{Status: st}
	if d, ok := st.View.(preview.PreviewingDiff); ok {
		resp.Diff = &diffResponse{PreviewingDiff: d, Unified: d.Unified()}
	}
	return resp
}

func (s *Server) lookup(c echo.Context) (*console.Console, error) {
	return s.registry.Get(c.Param("id"))
}

func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), s.timeout)
}

func (s *Server) list(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"consoles": s.registry.IDs()})
}

func (s *Server) open(c echo.Context) error {
	id := c.Param("id")
	var req struct {
		Content *string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}

	if existing, err := s.registry.Get(id); err == nil {
		return c.JSON(http.StatusOK, newStatusResponse(existing))
	}

	var content string
	switch {
	case req.Content != nil:
		content = *req.Content
	case s.loader != nil:
		ctx, cancel := s.requestContext(c)
		defer cancel()
		saved, ok, err := s.loader.Load(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			content = saved
		}
	}

	con, created, err := s.registry.Open(id, console.NewMemorySurface(content))
	if err != nil {
		return err
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
		s.log.Debug("opened console %s (%d bytes)", id, len(content))
	}
	return c.JSON(code, newStatusResponse(con))
}

func (s *Server) close(c echo.Context) error {
	if err := s.registry.Close(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) status(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func (s *Server) setContent(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	var req struct {
		Text *string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Text == nil {
		return badRequest(errors.New("text is required"))
	}
	if err := con.Edit(*req.Text); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func (s *Server) flush(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	if err := con.Flush(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func (s *Server) undo(c echo.Context) error {
	return s.navigate(c, (*console.Console).Undo)
}

func (s *Server) redo(c echo.Context) error {
	return s.navigate(c, (*console.Console).Redo)
}

func (s *Server) navigate(c echo.Context, step func(*console.Console) (string, error)) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	if _, err := step(con); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func (s *Server) versions(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]history.Info{"versions": con.History()})
}

func (s *Server) version(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	entry, ok := con.Version(c.Param("version"))
	if !ok {
		return console.ErrVersionNotFound
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) restore(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	if _, err := con.Restore(c.Param("version")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func bindModification(c echo.Context) (patch.Modification, error) {
	var mod patch.Modification
	if err := c.Bind(&mod); err != nil {
		return patch.Modification{}, err
	}
	return mod, nil
}

func (s *Server) showDiff(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	mod, err := bindModification(c)
	if err != nil {
		return err
	}
	if _, err := con.ShowDiff(mod); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func (s *Server) accept(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	res, err := con.Accept()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resultResponse{Result: res, Status: newStatusResponse(con)})
}

func (s *Server) reject(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	if err := con.Reject(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}

func (s *Server) apply(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	mod, err := bindModification(c)
	if err != nil {
		return err
	}
	res, err := con.ApplyDirect(mod)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resultResponse{Result: res, Status: newStatusResponse(con)})
}

func (s *Server) suggest(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	if s.producers == nil || s.producers.Len() == 0 {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no suggestion producers configured")
	}

	var req suggestRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	switch req.Apply {
	case "":
		req.Apply = applyPreview
	case applyPreview, applyDirect:
	default:
		return badRequest(errors.New(`apply must be "preview" or "direct"`))
	}

	producer, err := s.producers.Get(req.Producer)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()
	mod, err := s.producers.Suggest(ctx, producer.Name(), assist.Request{
		ConsoleID: con.ID(),
		Content:   con.Content(),
		Prompt:    req.Prompt,
	})
	if err != nil {
		return err
	}

	if req.Apply == applyDirect {
		_, err = con.ApplyDirect(mod)
	} else {
		_, err = con.ShowDiff(mod)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, suggestResponse{
		Producer:     producer.Name(),
		Modification: mod,
		Status:       newStatusResponse(con),
	})
}

func (s *Server) persist(c echo.Context) error {
	con, err := s.lookup(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	if err := con.Persist(ctx); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newStatusResponse(con))
}
