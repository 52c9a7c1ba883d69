package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/robert-koetsier/tidyseq/internal/compiler"
	"github.com/robert-koetsier/tidyseq/internal/pipeline"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading analysis specs from a directory.
type LoadResult struct {
	Datasets  []compiler.DatasetSpec
	Analyses  []pipeline.Analysis
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// Analysis returns the named analysis, if loaded.
func (r *LoadResult) Analysis(name string) (pipeline.Analysis, bool) {
	for _, a := range r.Analyses {
		if a.Name == name {
			return a, true
		}
	}
	return pipeline.Analysis{}, false
}

// Dataset returns the named dataset declaration, if loaded.
func (r *LoadResult) Dataset(name string) (compiler.DatasetSpec, bool) {
	for _, d := range r.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return compiler.DatasetSpec{}, false
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles CUE analysis specs from a directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
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

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	// Extract dataset declarations
	datasetsVal := value.LookupPath(cue.ParsePath("dataset"))
	if datasetsVal.Exists() {
		iter, iterErr := datasetsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating datasets: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				spec, compileErr := compiler.CompileDataset(iter.Value())
				if compileErr != nil {
					loadErr := convertCompileError(compileErr, "dataset."+iter.Selector().Unquoted())
					errs = append(errs, loadErr)
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Datasets = append(result.Datasets, *spec)
			}
		}
	}

	// Extract analyses
	analysesVal := value.LookupPath(cue.ParsePath("analysis"))
	if analysesVal.Exists() {
		iter, iterErr := analysesVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating analyses: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				a, compileErr := compiler.CompileAnalysis(iter.Value())
				if compileErr != nil {
					loadErr := convertCompileError(compileErr, "analysis."+iter.Selector().Unquoted())
					errs = append(errs, loadErr)
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Analyses = append(result.Analyses, *a)
			}
		}
	}

	// Check if we found anything
	if len(result.Datasets) == 0 && len(result.Analyses) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no datasets or analyses found in specs"})
	}

	return result, errs
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

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeReadFailed  = "E008" // Data file read error
	ErrCodeRunFailed   = "E009" // Analysis execution error

	// Analysis validation errors
	ErrCodeMissingDataset = "E101" // Analysis without a dataset
	ErrCodeBadStep        = "E102" // Malformed pipeline step
	ErrCodeBadPredicate   = "E103" // Malformed filter predicate
	ErrCodeBadExpr        = "E104" // Malformed mutate expression
	ErrCodeBadChart       = "E105" // Malformed chart spec
	ErrCodeBadTest        = "E106" // Malformed test spec
	ErrCodeBadOutput      = "E107" // Unknown output mode

	// Dataset declaration errors
	ErrCodeBadPath   = "E111" // Missing dataset path
	ErrCodeBadFormat = "E112" // Unknown file format
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "dataset":
		return ErrCodeMissingDataset
	case field == "step" || strings.HasPrefix(field, "steps["):
		return ErrCodeBadStep
	case field == "predicate":
		return ErrCodeBadPredicate
	case field == "expr" || strings.HasPrefix(field, "expr."):
		return ErrCodeBadExpr
	case field == "chart" || strings.HasPrefix(field, "chart."):
		return ErrCodeBadChart
	case field == "test" || strings.HasPrefix(field, "test."):
		return ErrCodeBadTest
	case field == "output":
		return ErrCodeBadOutput
	case field == "path":
		return ErrCodeBadPath
	case field == "format":
		return ErrCodeBadFormat
	default:
		return ErrCodeGeneric
	}
}
