package project

import "encoding/json"

// CategoryCounts is the added/removed/changed tally for one entity category.
type CategoryCounts struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// DiffCounts bundles per-category counts across all five entity kinds.
type DiffCounts struct {
	Bones      CategoryCounts `json:"bones"`
	Cubes      CategoryCounts `json:"cubes"`
	Meshes     CategoryCounts `json:"meshes"`
	Textures   CategoryCounts `json:"textures"`
	Animations CategoryCounts `json:"animations"`
}

// ItemSets holds the actual added/removed/changed item ids when requested.
type ItemSets struct {
	Bones      CategoryItems `json:"bones"`
	Cubes      CategoryItems `json:"cubes"`
	Meshes     CategoryItems `json:"meshes"`
	Textures   CategoryItems `json:"textures"`
	Animations CategoryItems `json:"animations"`
}

// CategoryItems is the id lists backing one category's ItemSets entry.
type CategoryItems struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// Diff is the result of comparing two snapshots.
type Diff struct {
	Counts DiffCounts `json:"counts"`
	Sets   *ItemSets  `json:"sets,omitempty"`
}

// Diff computes the structural diff between previous and current snapshots.
// Matching key is id when present, else name (spec §4.2). Determinism: item
// order within a category follows the current snapshot's insertion order.
func DiffSnapshots(previous, current *Snapshot, includeSets bool) (*Diff, error) {
	d := &Diff{}
	var sets *ItemSets
	if includeSets {
		sets = &ItemSets{}
	}

	bc, bi, err := diffCategory(boneKeys(previous), boneKeys(current), boneJSON(previous), boneJSON(current))
	if err != nil {
		return nil, err
	}
	d.Counts.Bones = bc

	cc, ci, err := diffCategory(cubeKeys(previous), cubeKeys(current), cubeJSON(previous), cubeJSON(current))
	if err != nil {
		return nil, err
	}
	d.Counts.Cubes = cc

	mc, mi, err := diffCategory(meshKeys(previous), meshKeys(current), meshJSON(previous), meshJSON(current))
	if err != nil {
		return nil, err
	}
	d.Counts.Meshes = mc

	tc, ti, err := diffCategory(textureKeys(previous), textureKeys(current), textureJSON(previous), textureJSON(current))
	if err != nil {
		return nil, err
	}
	d.Counts.Textures = tc

	ac, ai, err := diffCategory(animKeys(previous), animKeys(current), animJSON(previous), animJSON(current))
	if err != nil {
		return nil, err
	}
	d.Counts.Animations = ac

	if includeSets {
		sets.Bones, sets.Cubes, sets.Meshes, sets.Textures, sets.Animations = bi, ci, mi, ti, ai
		d.Sets = sets
	}
	return d, nil
}

// diffCategory computes add/remove/change counts and (optionally) the id
// lists for one category, given ordered key lists and per-key canonical JSON
// for equality comparison.
func diffCategory(prevKeys, curKeys []string, prevJSON, curJSON map[string][]byte) (CategoryCounts, CategoryItems, error) {
	prevSet := make(map[string]bool, len(prevKeys))
	for _, k := range prevKeys {
		prevSet[k] = true
	}
	curSet := make(map[string]bool, len(curKeys))
	for _, k := range curKeys {
		curSet[k] = true
	}

	var counts CategoryCounts
	var items CategoryItems

	for _, k := range curKeys {
		if !prevSet[k] {
			counts.Added++
			items.Added = append(items.Added, k)
			continue
		}
		if string(curJSON[k]) != string(prevJSON[k]) {
			counts.Changed++
			items.Changed = append(items.Changed, k)
		}
	}
	for _, k := range prevKeys {
		if !curSet[k] {
			counts.Removed++
			items.Removed = append(items.Removed, k)
		}
	}
	return counts, items, nil
}

func key(id, name string) string {
	if id != "" {
		return id
	}
	return name
}

func boneKeys(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Bones))
	for _, b := range s.Bones {
		out = append(out, key(b.ID, b.Name))
	}
	return out
}

func boneJSON(s *Snapshot) map[string][]byte {
	out := map[string][]byte{}
	if s == nil {
		return out
	}
	for _, b := range s.Bones {
		data, _ := json.Marshal(b)
		out[key(b.ID, b.Name)] = data
	}
	return out
}

func cubeKeys(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Cubes))
	for _, c := range s.Cubes {
		out = append(out, key(c.ID, c.Name))
	}
	return out
}

func cubeJSON(s *Snapshot) map[string][]byte {
	out := map[string][]byte{}
	if s == nil {
		return out
	}
	for _, c := range s.Cubes {
		data, _ := json.Marshal(c)
		out[key(c.ID, c.Name)] = data
	}
	return out
}

func meshKeys(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Meshes))
	for _, m := range s.Meshes {
		out = append(out, key(m.ID, m.Name))
	}
	return out
}

func meshJSON(s *Snapshot) map[string][]byte {
	out := map[string][]byte{}
	if s == nil {
		return out
	}
	for _, m := range s.Meshes {
		data, _ := json.Marshal(m)
		out[key(m.ID, m.Name)] = data
	}
	return out
}

func textureKeys(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Textures))
	for _, t := range s.Textures {
		out = append(out, key(t.ID, t.Name))
	}
	return out
}

func textureJSON(s *Snapshot) map[string][]byte {
	out := map[string][]byte{}
	if s == nil {
		return out
	}
	for _, t := range s.Textures {
		data, _ := json.Marshal(t)
		out[key(t.ID, t.Name)] = data
	}
	return out
}

func animKeys(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Animations))
	for _, a := range s.Animations {
		out = append(out, key(a.ID, a.Name))
	}
	return out
}

func animJSON(s *Snapshot) map[string][]byte {
	out := map[string][]byte{}
	if s == nil {
		return out
	}
	for _, a := range s.Animations {
		data, _ := json.Marshal(a)
		out[key(a.ID, a.Name)] = data
	}
	return out
}
