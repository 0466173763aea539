package scangrid

import (
	"fmt"
	"strings"
)

// InvalidAxisError reports a scan axis with zero candidate values. An empty
// axis is always a mistake in the study definition: it would silently expand
// to zero jobs, which is indistinguishable from a successful empty scan.
type InvalidAxisError struct {
	Axis string
}

func (e *InvalidAxisError) Error() string {
	return fmt.Sprintf("scan axis %q has no candidate values", e.Axis)
}

// PathResolutionError reports an axis whose target path does not exist in the
// base configuration.
type PathResolutionError struct {
	Axis string
	Path []string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("scan axis %q targets path %s which does not exist in the base configuration",
		e.Axis, strings.Join(e.Path, "."))
}
