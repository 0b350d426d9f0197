package messages

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sterlingconwell/courier-react/internal/graphql"
)

var (
	// ErrInvalidListID is returned when a list id cannot be used as a GraphQL
	// alias and variable name.
	ErrInvalidListID = errors.New("invalid list id")
	// ErrDuplicateListID is returned when two list specs share an id.
	ErrDuplicateListID = errors.New("duplicate list id")
	// ErrNoLists is returned when building a batched document from no specs.
	ErrNoLists = errors.New("no lists requested")
)

// listIDPattern is the GraphQL Name production.
var listIDPattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Document is a composed GraphQL operation ready to execute.
type Document struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// Aliases lists the top-level selections in input order.
	Aliases []string
}

// Request converts the document into a transport request.
func (d Document) Request() *graphql.Request {
	return &graphql.Request{
		Query:         d.Query,
		OperationName: d.OperationName,
		Variables:     d.Variables,
	}
}

// ValidateListSpecs checks that every id is a usable GraphQL name and that no
// id repeats.
func ValidateListSpecs(specs []ListSpec) error {
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if !listIDPattern.MatchString(spec.ID) || strings.HasPrefix(spec.ID, "__") {
			return fmt.Errorf("%w: %q", ErrInvalidListID, spec.ID)
		}
		if seen[spec.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateListID, spec.ID)
		}
		seen[spec.ID] = true
	}
	return nil
}

// paramsVar is the variable bound to a list's filters.
func paramsVar(id string) string {
	return id + "Params"
}

// BuildMessageLists composes one document holding an aliased messages
// selection per list, in input order. Each alias binds its filters to
// $<id>Params and all aliases share $limit. A non-positive limit becomes
// DefaultLimit.
func BuildMessageLists(specs []ListSpec, limit int) (Document, error) {
	if len(specs) == 0 {
		return Document{}, ErrNoLists
	}
	if err := ValidateListSpecs(specs); err != nil {
		return Document{}, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	args := make([]string, 0, len(specs)+1)
	aliases := make([]string, 0, len(specs))
	variables := make(map[string]any, len(specs)+1)

	var selections strings.Builder
	for _, spec := range specs {
		v := paramsVar(spec.ID)
		args = append(args, "$"+v+": FilterParamsInput")
		fmt.Fprintf(&selections, "    %s: messages(params: $%s, limit: $limit) %s\n", spec.ID, v, messagesSelection)
		variables[v] = spec.Filters
		aliases = append(aliases, spec.ID)
	}
	args = append(args, "$limit: Int = 10")
	variables["limit"] = limit

	query := fmt.Sprintf("query %s(%s){\n%s  }", OpGetMessageLists, strings.Join(args, ", "), selections.String())

	return Document{
		Query:         query,
		OperationName: OpGetMessageLists,
		Variables:     variables,
		Aliases:       aliases,
	}, nil
}

// BuildMessageCount composes the count document. A nil params sends no
// params variable.
func BuildMessageCount(params *FilterParams) Document {
	variables := map[string]any{}
	if params != nil {
		variables["params"] = *params
	}
	return Document{
		Query:         QueryMessageCount,
		OperationName: OpMessageCount,
		Variables:     variables,
	}
}

// BuildGetMessages composes the page document. The limit is split off the
// params and sent top-level with the cursor; both are omitted when unset.
func BuildGetMessages(params *MessageParams, after string) Document {
	var p MessageParams
	if params != nil {
		p = *params
	}
	variables := map[string]any{
		"params": p.FilterParams,
	}
	if p.Limit > 0 {
		variables["limit"] = p.Limit
	}
	if after != "" {
		variables["after"] = after
	}
	return Document{
		Query:         QueryGetMessages,
		OperationName: OpGetMessages,
		Variables:     variables,
	}
}
