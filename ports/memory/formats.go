package memory

import (
	"context"
	"fmt"

	"github.com/cubeforge/gateway/ports"
)

// Formats is a static in-process Formats adapter seeded at construction.
type Formats struct {
	byID map[string]ports.FormatDescriptor
	list []ports.FormatDescriptor
}

// NewFormats returns a Formats adapter seeded with the given descriptors,
// or a small built-in default set when none are given.
func NewFormats(descs ...ports.FormatDescriptor) *Formats {
	if len(descs) == 0 {
		descs = []ports.FormatDescriptor{
			{ID: "free", Name: "Free-form", TextureResolution: 16},
			{ID: "bedrock_old", Name: "Bedrock (old)", TextureResolution: 64},
			{ID: "java_block", Name: "Java block/item", TextureResolution: 16},
		}
	}
	f := &Formats{byID: make(map[string]ports.FormatDescriptor, len(descs))}
	for _, d := range descs {
		f.byID[d.ID] = d
		f.list = append(f.list, d)
	}
	return f
}

func (f *Formats) List(ctx context.Context) ([]ports.FormatDescriptor, error) {
	return append([]ports.FormatDescriptor(nil), f.list...), nil
}

func (f *Formats) Get(ctx context.Context, id string) (*ports.FormatDescriptor, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown format %q", id)
	}
	return &d, nil
}

var _ ports.Formats = (*Formats)(nil)
