// Package resources maps resource/operation pairs to Bitrix24 REST calls.
//
// Every operation reads its parameters from params.Params, issues one or more
// remote calls through the Runtime and returns a JSON-ready object.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Sternrassler/bitrix24-client/pkg/params"
)

var (
	// ErrUnknownResource is returned for a resource name outside the catalog.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrUnknownOperation is returned for an operation the resource lacks.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrMissingParameter is returned when a required parameter is empty.
	ErrMissingParameter = errors.New("missing required parameter")
)

// Operation executes one operation of a resource.
type Operation func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error)

// Resource is the set of operations of one resource.
type Resource map[string]Operation

var catalog = map[string]Resource{
	"deal":               deal.operations(),
	"lead":               lead.operations(),
	"contact":            contact.operations(),
	"company":            company.operations(),
	"timelineComment":    timelineCommentOps,
	"timelineNote":       timelineNoteOps,
	"timelineBinding":    timelineBindingOps,
	"timelineActivity":   timelineActivityOps,
	"productRow":         productRowOps,
	"task":               taskOps,
	"taskComment":        taskCommentOps,
	"user":               userOps,
	"openChannelMessage": openChannelMessageOps,
	"conversation":       conversationOps,
	"chatbot":            chatbotOps,
	"chatbotMessage":     chatbotMessageOps,
	"driveFile":          driveFileOps,
	"driveFolder":        driveFolderOps,
	"documentGenerator":  documentGeneratorOps,
	"blogPost":           blogPostOps,
	"crmActivity":        crmActivityOps,
	"rawApi":             rawAPIOps,
}

// Lookup returns the operation for resource and operation.
func Lookup(resource, operation string) (Operation, error) {
	r, ok := catalog[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, resource)
	}
	op, ok := r[operation]
	if !ok {
		return nil, fmt.Errorf("%w: %q for resource %q", ErrUnknownOperation, operation, resource)
	}
	return op, nil
}

// Execute runs operation of resource with p.
func Execute(ctx context.Context, rt *Runtime, resource, operation string, p params.Params) (map[string]any, error) {
	op, err := Lookup(resource, operation)
	if err != nil {
		return nil, err
	}

	rt.logger.Debug().
		Str("resource", resource).
		Str("operation", operation).
		Msg("Executing operation")

	if p == nil {
		p = params.Params{}
	}
	return op(ctx, rt, p)
}

// Names returns the sorted resource names.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operations returns the sorted operation names of resource.
func Operations(resource string) []string {
	r := catalog[resource]
	ops := make([]string, 0, len(r))
	for name := range r {
		ops = append(ops, name)
	}
	sort.Strings(ops)
	return ops
}
