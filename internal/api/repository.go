package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereceipt/label-designer/internal/repository"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// value reads a form field, then the query string
func value(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return v
	}
	return c.Query(key)
}

// nameFrom reads "name" from a JSON body, falling back to form and query
func nameFrom(c *gin.Context) string {
	if c.ContentType() == gin.MIMEJSON {
		var body struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&body); err == nil && body.Name != "" {
			return body.Name
		}
	}
	return value(c, "name")
}

func (s *Server) repoError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		fail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrNoName):
		fail(c, http.StatusBadRequest, "No name specified")
	default:
		s.log.Error(message, zap.Error(err))
		fail(c, http.StatusInternalServerError, message)
	}
}

func (s *Server) handleRepoList(c *gin.Context) {
	files, err := s.deps.Repository.List()
	if err != nil {
		s.repoError(c, err, "Failed to list files")
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) handleRepoSave(c *gin.Context) {
	raw, err := c.GetRawData()
	var data map[string]any
	if err == nil {
		err = json.Unmarshal(raw, &data)
	}
	if err != nil || data == nil {
		fail(c, http.StatusBadRequest, "No JSON payload provided")
		return
	}
	name, err := s.deps.Repository.Save(c.Query("name"), data)
	if errors.Is(err, repository.ErrNoName) {
		fail(c, http.StatusBadRequest, "No name provided")
		return
	}
	if err != nil {
		s.repoError(c, err, "Failed to save file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "name": name})
}

func (s *Server) handleRepoLoad(c *gin.Context) {
	name := value(c, "name")
	if name == "" {
		fail(c, http.StatusBadRequest, "No name specified")
		return
	}
	data, err := s.deps.Repository.Load(name)
	if err != nil {
		s.repoError(c, err, "Failed to load file")
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *Server) handleRepoDelete(c *gin.Context) {
	name := nameFrom(c)
	if name == "" {
		fail(c, http.StatusBadRequest, "No name specified")
		return
	}
	if err := s.deps.Repository.Delete(name); err != nil {
		s.repoError(c, err, "Failed to delete file")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// storedRequest loads a saved design and applies printer overrides from the query or form
func (s *Server) storedRequest(c *gin.Context, name string) (*labelformat.Request, bool) {
	if name == "" {
		fail(c, http.StatusBadRequest, "No name specified")
		return nil, false
	}
	req, err := s.deps.Repository.Request(name)
	if err != nil {
		s.repoError(c, err, "Failed to load file")
		return nil, false
	}
	if p := value(c, "printer"); p != "" {
		req.Printer = p
	}
	if m := value(c, "model"); m != "" {
		req.Model = m
	}
	return req, true
}

func (s *Server) handleRepoPreview(c *gin.Context) {
	req, ok := s.storedRequest(c, value(c, "name"))
	if !ok {
		return
	}
	s.render(c, req, nil)
}

func (s *Server) handleRepoPrint(c *gin.Context) {
	req, ok := s.storedRequest(c, nameFrom(c))
	if !ok {
		return
	}
	if v := value(c, "print_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid print_count: "+v)
			return
		}
		req.PrintCount = n
	}
	if v := value(c, "cut_once"); v != "" {
		req.CutOnce = v == "1"
	}
	if v := value(c, "high_res"); v != "" {
		req.HighRes = v != "0"
	}
	s.print(c, req, nil)
}
