package solr

import (
	"context"
	"fmt"

	"github.com/lanternsearch/lantern/internal/document"
	"github.com/lanternsearch/lantern/internal/errors"
)

// requiredFields are the schema fields this core writes on every record.
// Area-specific extras are declared out of band and are not checked.
var requiredFields = []string{
	document.FieldID,
	document.FieldAreaID,
	document.FieldItemID,
	document.FieldType,
	document.FieldTitle,
	document.FieldContent,
	document.FieldContextID,
	document.FieldModified,
	document.FieldGroupingID,
}

// validateSchema confirms the remote core's schema still carries every
// field this core depends on. A freshly recreated core, or one pointed
// at the wrong config set, fails here rather than corrupting results.
func (c *Client) validateSchema(ctx context.Context) error {
	var resp struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := c.get(ctx, "/schema/fields", nil, &resp); err != nil {
		return err
	}

	present := make(map[string]bool, len(resp.Fields))
	for _, f := range resp.Fields {
		present[f.Name] = true
	}
	for _, name := range requiredFields {
		if !present[name] {
			return errors.New(errors.ErrCodeSchemaInvalid,
				fmt.Sprintf("engine schema is missing field %q", name), nil)
		}
	}
	return nil
}
