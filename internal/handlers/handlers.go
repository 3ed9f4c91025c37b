package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/Brownie44l1/imgeval/internal/nodes"
	"github.com/Brownie44l1/imgeval/internal/tensor"
)

type Handler struct {
	registry       *nodes.Registry
	maxUploadBytes int64
}

func NewHandler(registry *nodes.Registry, maxUploadMB int) *Handler {
	return &Handler{
		registry:       registry,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// ExecuteResponse is returned by a successful node execution.
type ExecuteResponse struct {
	PromptID string            `json:"prompt_id"`
	Node     string            `json:"node"`
	Outputs  map[string]string `json:"outputs"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) ObjectInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.ObjectInfo())
}

func (h *Handler) NodeInfo(w http.ResponseWriter, r *http.Request) {
	info, ok := h.registry.Info(r.PathValue("id"))
	if !ok {
		http.Error(w, "Unknown node", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	node, ok := h.registry.ClassMappings[id]
	if !ok {
		http.Error(w, "Unknown node", http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	inputs, err := formInputs(r, node.InputTypes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	promptID := uuid.NewString()
	log.Printf("Executing %s (prompt %s)", id, promptID)

	out, err := h.registry.Invoke(r.Context(), id, inputs)
	if err != nil {
		if errors.Is(err, nodes.ErrMissingInput) || errors.Is(err, nodes.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Execution error (prompt %s): %v", promptID, err)
		http.Error(w, "Execution failed", http.StatusInternalServerError)
		return
	}

	resp := ExecuteResponse{
		PromptID: promptID,
		Node:     id,
		Outputs:  make(map[string]string, len(out)),
	}
	for i, name := range node.ReturnNames() {
		resp.Outputs[name], _ = out[i].(string)
	}

	writeJSON(w, http.StatusOK, resp)
}

// formInputs turns a multipart request into node inputs: declared IMAGE
// inputs are read from file fields, everything else from form values.
func formInputs(r *http.Request, decl nodes.InputTypes) (nodes.Inputs, error) {
	inputs := make(nodes.Inputs)

	collect := func(d *nodes.Declarations) error {
		if d == nil {
			return nil
		}
		for pair := d.Oldest(); pair != nil; pair = pair.Next() {
			name, spec := pair.Key, pair.Value
			if spec.Type != nodes.TypeImage {
				if values, ok := r.MultipartForm.Value[name]; ok && len(values) > 0 {
					inputs[name] = values[0]
				}
				continue
			}

			file, header, err := r.FormFile(name)
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			if err != nil {
				return err
			}
			img, format, err := tensor.Decode(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("invalid image format for %s, supported: JPEG, PNG, WebP", name)
			}
			log.Printf("Received %s: %s (%s, %dx%d)", name, header.Filename, format, img.Width(), img.Height())
			inputs[name] = img
		}
		return nil
	}

	if err := collect(decl.Required); err != nil {
		return nil, err
	}
	if err := collect(decl.Optional); err != nil {
		return nil, err
	}
	return inputs, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
