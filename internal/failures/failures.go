package failures

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	kindManifestParseStringConstant       = "ManifestParseError"
	kindManifestConflictStringConstant    = "ManifestConflictError"
	kindCyclicLinkStringConstant          = "CyclicLinkError"
	kindMissingManifestStringConstant     = "MissingManifest"
	kindCollaboratorFailureStringConstant = "CollaboratorFailure"
	kindHookFailureStringConstant         = "HookFailure"
	kindUnknownStringConstant             = "UnknownFailure"
	failureDescriptionTemplateConstant    = "%s [%s]: %s"
	rootPathLabelConstant                 = "."
)

// Kind classifies a failure reported by the resolution or synchronization core.
type Kind string

// Supported failure kinds.
const (
	KindManifestParse       Kind = Kind(kindManifestParseStringConstant)
	KindManifestConflict    Kind = Kind(kindManifestConflictStringConstant)
	KindCyclicLink          Kind = Kind(kindCyclicLinkStringConstant)
	KindMissingManifest     Kind = Kind(kindMissingManifestStringConstant)
	KindCollaboratorFailure Kind = Kind(kindCollaboratorFailureStringConstant)
	KindHookFailure         Kind = Kind(kindHookFailureStringConstant)
	KindUnknown             Kind = Kind(kindUnknownStringConstant)
)

// KindedError is implemented by errors that belong to a failure kind.
type KindedError interface {
	error
	Kind() Kind
}

// KindOf extracts the failure kind carried by err or its wrapped chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var kindedError KindedError
	if errors.As(err, &kindedError) {
		return kindedError.Kind()
	}
	return KindUnknown
}

// Failure is a single per-node failure surfaced to the caller.
type Failure struct {
	Path    string
	Kind    Kind
	Message string
}

// NewFailure builds a Failure for the node at path from err.
func NewFailure(path string, err error) Failure {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return Failure{Path: path, Kind: KindOf(err), Message: message}
}

// String renders the failure for console output.
func (failure Failure) String() string {
	displayPath := failure.Path
	if len(displayPath) == 0 {
		displayPath = rootPathLabelConstant
	}
	return fmt.Sprintf(failureDescriptionTemplateConstant, displayPath, failure.Kind, failure.Message)
}

// Collector accumulates failures from concurrent traversals.
type Collector struct {
	mutex    sync.Mutex
	failures []Failure
}

// NewCollector constructs an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record stores a failure for path derived from err. Nil errors are ignored.
func (collector *Collector) Record(path string, err error) {
	if collector == nil || err == nil {
		return
	}
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.failures = append(collector.failures, NewFailure(path, err))
}

// Append stores already-built failures.
func (collector *Collector) Append(failures ...Failure) {
	if collector == nil || len(failures) == 0 {
		return
	}
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	collector.failures = append(collector.failures, failures...)
}

// Failures returns a copy of the recorded failures ordered by path.
func (collector *Collector) Failures() []Failure {
	if collector == nil {
		return nil
	}
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	recorded := append([]Failure{}, collector.failures...)
	sort.SliceStable(recorded, func(leftIndex int, rightIndex int) bool {
		return recorded[leftIndex].Path < recorded[rightIndex].Path
	})
	return recorded
}

// Empty reports whether no failures were recorded.
func (collector *Collector) Empty() bool {
	if collector == nil {
		return true
	}
	collector.mutex.Lock()
	defer collector.mutex.Unlock()
	return len(collector.failures) == 0
}
