package wav

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// ChunkHandler decodes a non-core chunk into Metadata. Handlers only see
// chunks other than fmt and data; whatever they do, the chunk id is still
// reported as unrecognized in the summary.
type ChunkHandler interface {
	CanHandle(chunkID [4]byte, listType [4]byte) bool
	Decode(md *Metadata, ch *riff.Chunk) error
}

// ChunkRegistry resolves chunks to handlers.
type ChunkRegistry struct {
	handlers []ChunkHandler
}

// NewChunkRegistry returns a registry holding the built-in fact and LIST/INFO
// handlers followed by the passed handlers.
func NewChunkRegistry(handlers ...ChunkHandler) *ChunkRegistry {
	r := newDefaultChunkRegistry()
	for _, h := range handlers {
		r.Register(h)
	}

	return r
}

func newDefaultChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{
		handlers: []ChunkHandler{
			&factChunkHandler{},
			&listChunkHandler{},
		},
	}
}

// Register appends a handler to the registry.
func (r *ChunkRegistry) Register(handler ChunkHandler) {
	if r == nil || handler == nil {
		return
	}

	r.handlers = append(r.handlers, handler)
}

// Decode dispatches a chunk to the first matching handler.
func (r *ChunkRegistry) Decode(md *Metadata, chnk *riff.Chunk) (bool, error) {
	if r == nil || chnk == nil {
		return false, nil
	}

	listType, err := sniffListType(chnk)
	if err != nil {
		return false, err
	}

	for _, handler := range r.handlers {
		if handler.CanHandle(chnk.ID, listType) {
			err := handler.Decode(md, chnk)
			if err != nil {
				return true, fmt.Errorf("chunk handler decode failed: %w", err)
			}

			return true, nil
		}
	}

	return false, nil
}

func sniffListType(chnk *riff.Chunk) ([4]byte, error) {
	var listType [4]byte

	if chnk == nil || chnk.ID != CIDList || chnk.Size < 4 {
		return listType, nil
	}

	var head [4]byte

	n, err := io.ReadFull(chnk.R, head[:])
	if err != nil {
		return listType, fmt.Errorf("failed to read LIST type: %w", err)
	}

	copy(listType[:], head[:])

	remaining := io.LimitReader(chnk.R, int64(chnk.Size-n))
	chnk.R = io.MultiReader(bytes.NewReader(head[:]), remaining)

	return listType, nil
}

type factChunkHandler struct{}

func (h *factChunkHandler) CanHandle(chunkID [4]byte, _ [4]byte) bool {
	return chunkID == CIDFact
}

func (h *factChunkHandler) Decode(md *Metadata, chunk *riff.Chunk) error {
	if md == nil || chunk == nil {
		return nil
	}

	var sampleCount uint32

	err := chunk.ReadLE(&sampleCount)
	if err != nil {
		return fmt.Errorf("failed to read fact sample count: %w", err)
	}

	md.SampleCount = sampleCount
	md.HasFact = true

	return nil
}

type listChunkHandler struct{}

func (h *listChunkHandler) CanHandle(chunkID [4]byte, listType [4]byte) bool {
	return chunkID == CIDList && listType == CIDInfo
}

func (h *listChunkHandler) Decode(md *Metadata, ch *riff.Chunk) error {
	return DecodeListChunk(md, ch)
}
