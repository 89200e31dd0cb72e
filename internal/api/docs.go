package api

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpecYAML []byte

var (
	openAPIOnce     sync.Once
	openAPISpecJSON []byte
	openAPISpecErr  error
)

// openAPIJSONBytes converts the embedded YAML document once and caches it.
func openAPIJSONBytes() ([]byte, error) {
	openAPIOnce.Do(func() {
		var spec map[string]any
		if err := yaml.Unmarshal(openAPISpecYAML, &spec); err != nil {
			openAPISpecErr = fmt.Errorf("parse openapi document: %w", err)
			return
		}
		openAPISpecJSON, openAPISpecErr = json.Marshal(spec)
	})
	return openAPISpecJSON, openAPISpecErr
}

func (s *Server) openAPIJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := openAPIJSONBytes()
	if err != nil {
		s.logger.Error("openapi document unavailable", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "documentation unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) openAPIYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(openAPISpecYAML)
}
