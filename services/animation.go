package services

import (
	"context"
	"strings"

	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/project"
)

// Animation is the use-case service behind animation clip and keyframe
// mutations.
type Animation struct {
	Editor ports.Editor
	Snap   ports.Snapshot
	Limits Limits
}

func NewAnimation(editor ports.Editor, snap ports.Snapshot, limits Limits) *Animation {
	return &Animation{Editor: editor, Snap: snap, Limits: limits}
}

func (a *Animation) AddClip(ctx context.Context, name string, length float64) (*Result, error) {
	if strings.TrimSpace(name) == "" {
		return nil, blank("name")
	}
	if length <= 0 {
		return nil, invalidState("invalid_payload", "length must be positive", map[string]interface{}{"reason": "LENGTH_NOT_POSITIVE"})
	}
	if a.Limits.MaxAnimationSeconds > 0 && length > a.Limits.MaxAnimationSeconds {
		return nil, invalidState("invalid_state", "length exceeds limit", map[string]interface{}{
			"reason": "MODEL_ANIMATION_LENGTH_EXCEEDED", "maxSeconds": a.Limits.MaxAnimationSeconds,
		})
	}
	if err := a.Editor.AddAnimationClip(ctx, project.AnimationClip{Name: name, Length: length}); err != nil {
		return nil, err
	}
	snap, err := a.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"name": name}, Snapshot: snap}, nil
}

func (a *Animation) AddKeyframe(ctx context.Context, clipID, target string, t float64, value [3]float64) (*Result, error) {
	if strings.TrimSpace(clipID) == "" {
		return nil, blank("clipId")
	}
	if strings.TrimSpace(target) == "" {
		return nil, blank("target")
	}
	snap, err := a.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	var clip *project.AnimationClip
	for i := range snap.Animations {
		if snap.Animations[i].ID == clipID {
			clip = &snap.Animations[i]
			break
		}
	}
	if clip == nil {
		return nil, notFound("animation clip", clipID)
	}
	if t < 0 || t > clip.Length {
		return nil, invalidState("invalid_state", "keyframe time out of range", map[string]interface{}{
			"reason": "KEYFRAME_OUT_OF_RANGE", "time": t, "length": clip.Length,
		})
	}
	for _, ch := range clip.Channels {
		if ch.Target != target {
			continue
		}
		if len(ch.Keys) > 0 && t <= ch.Keys[len(ch.Keys)-1].Time {
			return nil, invalidState("invalid_state", "keyframes must be strictly increasing", map[string]interface{}{
				"reason": "KEYFRAME_NOT_INCREASING",
			})
		}
	}
	if err := a.Editor.AddKeyframe(ctx, clipID, target, project.AnimationKeyframe{Time: t, Value: value}); err != nil {
		return nil, err
	}
	next, err := a.Snap.Current(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Data: map[string]interface{}{"clipId": clipID, "target": target}, Snapshot: next}, nil
}
