package event

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// PatchOp is a JSON Patch (RFC 6902) operation name.
type PatchOp string

const (
	PatchAdd     PatchOp = "add"
	PatchRemove  PatchOp = "remove"
	PatchReplace PatchOp = "replace"
	PatchMove    PatchOp = "move"
	PatchCopy    PatchOp = "copy"
	PatchTest    PatchOp = "test"
)

// Patch is one JSON Patch operation as carried by STATE_DELTA.
type Patch struct {
	Op    PatchOp `json:"op"`
	Path  string  `json:"path"`
	Value any     `json:"value,omitempty"`
	From  string  `json:"from,omitempty"`
}

// Add creates an add operation.
func Add(path string, value any) Patch {
	return Patch{Op: PatchAdd, Path: path, Value: value}
}

// Replace creates a replace operation.
func Replace(path string, value any) Patch {
	return Patch{Op: PatchReplace, Path: path, Value: value}
}

// Remove creates a remove operation.
func Remove(path string) Patch {
	return Patch{Op: PatchRemove, Path: path}
}

// PatchError reports the operation that could not be applied.
type PatchError struct {
	Op   PatchOp
	Path string
	Err  error
}

// Error returns a formatted error message including the operation and path.
func (e *PatchError) Error() string {
	return fmt.Sprintf("event: patch %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PatchError) Unwrap() error {
	return e.Err
}

// ApplyPatches applies ops to a copy of doc and returns the result.
// doc is left untouched. On failure the partially patched copy is discarded.
func ApplyPatches(doc any, ops []Patch) (any, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("event: marshal state: %w", err)
	}

	opts := jsonpatch.NewApplyOptions()
	opts.SupportNegativeIndices = false
	for _, op := range ops {
		data, err = applyPatch(data, op, opts)
		if err != nil {
			return nil, &PatchError{Op: op.Op, Path: op.Path, Err: err}
		}
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("event: unmarshal patched state: %w", err)
	}
	return out, nil
}

func applyPatch(doc []byte, op Patch, opts *jsonpatch.ApplyOptions) ([]byte, error) {
	if err := op.validate(); err != nil {
		return nil, err
	}
	if op.Path == "" && (op.Op == PatchAdd || op.Op == PatchReplace) {
		return json.Marshal(op.Value)
	}

	raw, err := json.Marshal([]map[string]any{op.wire()})
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, err
	}
	return patch.ApplyWithOptions(doc, opts)
}

// validate rejects what RFC 6902 forbids before the document is touched.
func (p Patch) validate() error {
	switch p.Op {
	case PatchAdd, PatchRemove, PatchReplace, PatchTest:
	case PatchMove, PatchCopy:
		if err := checkPointer(p.From, false); err != nil {
			return fmt.Errorf("from: %w", err)
		}
		if p.Op == PatchMove && p.From != p.Path && strings.HasPrefix(p.Path, p.From+"/") {
			return fmt.Errorf("cannot move %q into its own child", p.From)
		}
	default:
		return fmt.Errorf("unsupported op")
	}
	return checkPointer(p.Path, p.Op == PatchAdd || p.Op == PatchMove || p.Op == PatchCopy)
}

func (p Patch) wire() map[string]any {
	w := map[string]any{"op": string(p.Op), "path": p.Path}
	switch p.Op {
	case PatchAdd, PatchReplace, PatchTest:
		w["value"] = p.Value
	case PatchMove, PatchCopy:
		w["from"] = p.From
	}
	return w
}

// checkPointer validates a JSON Pointer. The "-" array token is accepted
// only as the last token of a target that adds a value.
func checkPointer(pointer string, allowAppend bool) error {
	if pointer == "" {
		return nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return fmt.Errorf("invalid JSON pointer %q", pointer)
	}
	tokens := strings.Split(pointer[1:], "/")
	for i, tok := range tokens {
		if tok == "-" && (!allowAppend || i != len(tokens)-1) {
			return fmt.Errorf("array append token not allowed in %q", pointer)
		}
	}
	return nil
}
