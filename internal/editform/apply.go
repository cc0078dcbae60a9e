package editform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/ocr-dashboard/constants"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/entity"
)

// setter writes one string value into a resolved leaf.
type setter func(value string)

func pathNotFound(path string) error {
	return common.NewAppError("PATH_NOT_FOUND", fmt.Sprintf("path not found: %s", path), common.ErrPathNotFound)
}

// Apply assigns every value to its path in rec. Values are stored as
// strings. All paths are resolved before anything is written, so a bad path
// leaves rec untouched. Only paths the edit form would offer are accepted.
func Apply(rec entity.Record, mode constants.Mode, values map[string]string) error {
	if rec == nil {
		return common.NewAppError("NO_SNAPSHOT", "No extracted data to edit. Please upload a document first.", common.ErrNoSnapshot)
	}
	eligible := Build(rec, mode).Paths()

	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	setters := make([]setter, 0, len(paths))
	for _, p := range paths {
		if _, ok := eligible[p]; !ok {
			return pathNotFound(p)
		}
		set, err := resolve(rec, p)
		if err != nil {
			return err
		}
		setters = append(setters, set)
	}

	for i, set := range setters {
		set(values[paths[i]])
	}
	return nil
}

func resolve(rec entity.Record, path string) (setter, error) {
	switch r := rec.(type) {
	case *entity.FlatRecord:
		if _, ok := r.Get(path); !ok {
			return nil, pathNotFound(path)
		}
		return func(v string) { r.Set(path, v) }, nil
	case *entity.PaginatedRecord:
		return resolvePaginated(r, path)
	}
	return nil, pathNotFound(path)
}

func resolvePaginated(r *entity.PaginatedRecord, path string) (setter, error) {
	if path == "text" {
		return func(v string) { r.Text = v }, nil
	}

	segs := strings.Split(path, ".")
	if len(segs) == 5 && segs[0] == "pages" && segs[2] == "content" && segs[4] == "value" {
		pi, err1 := strconv.Atoi(segs[1])
		ii, err2 := strconv.Atoi(segs[3])
		if err1 != nil || err2 != nil || pi < 0 || pi >= len(r.Pages) {
			return nil, pathNotFound(path)
		}
		if ii < 0 || ii >= len(r.Pages[pi].Content) {
			return nil, pathNotFound(path)
		}
		return func(v string) { r.Pages[pi].Content[ii].Value = v }, nil
	}

	if len(segs) == 1 {
		for i := range r.Extra {
			if r.Extra[i].Key == path {
				idx := i
				return func(v string) { r.Extra[idx].Value = v }, nil
			}
		}
	}
	return nil, pathNotFound(path)
}
