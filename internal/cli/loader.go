package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/strata/internal/temporal"
)

// LoadMode controls how errors are handled during manifest loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// ToggleEntry is one versioning toggle from a manifest.
type ToggleEntry struct {
	TypeTag   string
	Versioned bool
}

// Manifest is the result of loading a collection manifest directory.
//
// A manifest declares versioning toggles in CUE:
//
//	collections: {
//		orders:   {versioned: true}
//		invoices: {versioned: false}
//	}
//	default: versioned: false
type Manifest struct {
	Entries   []ToggleEntry
	Default   *bool // nil when the manifest sets no default entry
	FileCount int   // Number of CUE files found
}

// LoadError represents an error that occurred during manifest loading.
type LoadError struct {
	Code    string
	Message string
	Path    string // CUE path of the offending entry, if known
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Manifest validation errors
	ErrCodeMissingVersioned = "E101" // Entry without a versioned field
	ErrCodeInvalidTypeTag   = "E102" // Type tag contains reserved characters
)

// LoadManifest loads versioning toggles from the CUE files in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadManifest(dir string, mode LoadMode) (*Manifest, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	manifest := &Manifest{FileCount: len(cueFiles)}

	// Extract collection entries
	collections := value.LookupPath(cue.ParsePath("collections"))
	if collections.Exists() {
		iter, iterErr := collections.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating collections: %v", iterErr)})
			if mode == LoadModeFailFast {
				return manifest, errs
			}
		} else {
			for iter.Next() {
				entry, entryErr := decodeToggle(iter.Label(), iter.Value())
				if entryErr != nil {
					errs = append(errs, entryErr)
					if mode == LoadModeFailFast {
						return manifest, errs
					}
					continue
				}
				manifest.Entries = append(manifest.Entries, *entry)
			}
		}
	}

	// Extract the optional default entry
	defaultVal := value.LookupPath(cue.ParsePath("default.versioned"))
	if defaultVal.Exists() {
		enabled, boolErr := defaultVal.Bool()
		if boolErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeMissingVersioned, Path: "default", Message: fmt.Sprintf("versioned must be a bool: %v", boolErr)})
			if mode == LoadModeFailFast {
				return manifest, errs
			}
		} else {
			manifest.Default = &enabled
		}
	}

	if len(manifest.Entries) == 0 && manifest.Default == nil && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no collection entries found in manifest"})
	}

	return manifest, errs
}

// decodeToggle converts one collections entry to a ToggleEntry.
func decodeToggle(label string, val cue.Value) (*ToggleEntry, error) {
	if strings.Contains(label, temporal.Separator) {
		return nil, &LoadError{
			Code:    ErrCodeInvalidTypeTag,
			Path:    "collections." + label,
			Message: fmt.Sprintf("type tag must not contain %q", temporal.Separator),
		}
	}

	versioned := val.LookupPath(cue.ParsePath("versioned"))
	if !versioned.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeMissingVersioned,
			Path:    "collections." + label,
			Message: "missing required field: versioned",
		}
	}
	enabled, err := versioned.Bool()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeMissingVersioned,
			Path:    "collections." + label,
			Message: fmt.Sprintf("versioned must be a bool: %v", err),
		}
	}

	return &ToggleEntry{TypeTag: label, Versioned: enabled}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
