package openapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/siegeai/jsonstruct/infer"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponents(t *testing.T) {
	l, err := infer.Infer("Root",
		[]byte(`{"id": 1, "tags": ["a"], "owner": {"name": "x"}, "items": [{"sku": "a"}], "gone": null}`),
		[]byte(`{"id": 2, "owner": {"name": "y", "email": "e"}, "empty": []}`),
	)
	require.Nil(t, err)

	schemas, err := Components(l)
	require.Nil(t, err)
	assert.Len(t, schemas, 3)

	root := schemas["Root"].Value
	require.NotNil(t, root)
	assert.Equal(t, openapi3.TypeObject, root.Type)
	assert.Equal(t, []string{"id", "owner"}, root.Required)
	assert.Equal(t, openapi3.TypeNumber, root.Properties["id"].Value.Type)
	assert.Equal(t, openapi3.TypeArray, root.Properties["tags"].Value.Type)
	assert.Equal(t, openapi3.TypeString, root.Properties["tags"].Value.Items.Value.Type)
	assert.Equal(t, "#/components/schemas/Root_Owner", root.Properties["owner"].Ref)
	assert.Equal(t, "#/components/schemas/Root_Items", root.Properties["items"].Value.Items.Ref)
	assert.True(t, root.Properties["gone"].Value.Nullable)
	assert.Equal(t, "", root.Properties["empty"].Value.Items.Value.Type)

	owner := schemas["Root_Owner"].Value
	assert.Equal(t, []string{"name"}, owner.Required)
	assert.Contains(t, owner.Properties, "email")
}

func TestDocumentValidates(t *testing.T) {
	a, err := infer.Infer("Pet", []byte(`{"name": "rex", "tags": [{"k": "v"}]}`))
	require.Nil(t, err)
	b, err := infer.Infer("Owner", []byte(`{"pets": [{"name": "rex"}]}`))
	require.Nil(t, err)

	doc, err := Document("pets", "1.0.0", map[string]*lattice.Lattice{"Pet": a, "Owner": b})
	require.Nil(t, err)
	assert.Contains(t, doc.Components.Schemas, "Pet_Tags")
	assert.Contains(t, doc.Components.Schemas, "Owner_Pets")

	bs, err := json.Marshal(doc)
	require.Nil(t, err)
	loaded, err := openapi3.NewLoader().LoadFromData(bs)
	require.Nil(t, err)
	assert.Nil(t, loaded.Validate(context.Background()))
	assert.Equal(t, openapi3.TypeString, loaded.Components.Schemas["Owner"].Value.Properties["pets"].Value.Items.Value.Properties["name"].Value.Type)
}

func TestDocumentDuplicateComponent(t *testing.T) {
	a, err := infer.Infer("Pet", []byte(`{"name": "rex"}`))
	require.Nil(t, err)
	b, err := infer.Infer("Pet", []byte(`{"age": 3}`))
	require.Nil(t, err)

	_, err = Document("pets", "1.0.0", map[string]*lattice.Lattice{"a": a, "b": b})
	assert.NotNil(t, err)
}

func TestRenderer(t *testing.T) {
	l, err := infer.Infer("Root", []byte(`{"id": 1}`))
	require.Nil(t, err)

	out, err := Renderer{}.Render(l, true)
	require.Nil(t, err)

	var doc map[string]any
	require.Nil(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "3.0.0", doc["openapi"])
	assert.Equal(t, "Root", doc["info"].(map[string]any)["title"])

	_, err = Renderer{}.Render(lattice.New(), false)
	assert.NotNil(t, err)
}
