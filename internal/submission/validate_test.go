package submission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zulrahTiles = `[{"regionId":1,"regionX":2,"regionY":3,"z":0,"color":"#ff0000ff"}]`

func validForm() Form {
	return Form{
		Name:          "Zulrah Safe Spots",
		Description:   "10+ characters of text",
		Tiles:         zulrahTiles,
		Images:        []File{{Filename: "zulrah.png", ContentType: "image/png", Data: []byte("png")}},
		Tags:          []string{"PvM"},
		HumanVerified: true,
	}
}

func requireFieldErrors(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	return verr
}

func TestValidate_ValidForm(t *testing.T) {
	sub, err := Validate(validForm())
	require.NoError(t, err)

	assert.Equal(t, "Zulrah Safe Spots", sub.Name)
	assert.Equal(t, []string{"PvM"}, sub.Tags)
	assert.Equal(t, "zulrah.png", sub.Image.Filename)
	require.Len(t, sub.Tiles, 1)
	assert.Equal(t, int64(1), sub.Tiles[0].RegionID)
	assert.Equal(t, "#ff0000ff", sub.Tiles[0].Color)
}

func TestValidate_NameLength(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"empty", "", false},
		{"one character", "a", true},
		{"at limit", strings.Repeat("a", MaxNameLength), true},
		{"over limit", strings.Repeat("a", MaxNameLength+1), false},
		{"multibyte at limit", strings.Repeat("é", MaxNameLength), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.Name = tt.value
			_, err := Validate(form)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			verr := requireFieldErrors(t, err)
			assert.Equal(t, []string{FieldName}, verr.FieldNames())
		})
	}
}

func TestValidate_DescriptionLength(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"empty", "", false},
		{"nine characters", strings.Repeat("d", 9), false},
		{"at minimum", strings.Repeat("d", MinDescriptionLength), true},
		{"at maximum", strings.Repeat("d", MaxDescriptionLength), true},
		{"over maximum", strings.Repeat("d", MaxDescriptionLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.Description = tt.value
			_, err := Validate(form)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			verr := requireFieldErrors(t, err)
			assert.Equal(t, []string{FieldDescription}, verr.FieldNames())
		})
	}
}

func TestValidate_TilesMessages(t *testing.T) {
	form := validForm()
	form.Tiles = `[{"regionId":1,`
	verr := requireFieldErrors(t, errOf(Validate(form)))
	assert.Equal(t, []string{MsgInvalidJSON}, verr.Fields[FieldTiles])

	form.Tiles = `[{"regionId":1,"regionX":2,"regionY":3,"z":0,"color":"#ff0000ff","extra":"x"}]`
	verr = requireFieldErrors(t, errOf(Validate(form)))
	assert.Equal(t, []string{MsgInvalidTileData}, verr.Fields[FieldTiles])
}

func TestValidate_ImageCount(t *testing.T) {
	for _, n := range []int{0, 2} {
		form := validForm()
		form.Images = make([]File, n)
		verr := requireFieldErrors(t, errOf(Validate(form)))
		assert.Equal(t, []string{FieldImage}, verr.FieldNames(), "images=%d", n)
	}
}

func TestValidate_TagCount(t *testing.T) {
	form := validForm()
	form.Tags = nil
	verr := requireFieldErrors(t, errOf(Validate(form)))
	assert.Equal(t, "Select at least 1 tag", verr.First(FieldTags))

	form.Tags = []string{"a", "b", "c", "d", "e", "f", "g"}
	_, err := Validate(form)
	assert.NoError(t, err)

	form.Tags = append(form.Tags, "h")
	verr = requireFieldErrors(t, errOf(Validate(form)))
	assert.Equal(t, "Select at most 7 tags", verr.First(FieldTags))

	form.Tags = []string{"PvM", "PvM"}
	verr = requireFieldErrors(t, errOf(Validate(form)))
	assert.True(t, verr.Has(FieldTags))
}

func TestValidate_HumanVerificationOnly(t *testing.T) {
	form := validForm()
	form.HumanVerified = false

	verr := requireFieldErrors(t, errOf(Validate(form)))
	assert.Equal(t, []string{FieldHumanVerified}, verr.FieldNames())
}

func TestValidate_CollectsEveryField(t *testing.T) {
	verr := requireFieldErrors(t, errOf(Validate(Form{Tiles: "nope"})))
	assert.Equal(t, []string{
		FieldDescription, FieldHumanVerified, FieldImage, FieldName, FieldTags, FieldTiles,
	}, verr.FieldNames())
	assert.Equal(t, MsgInvalidJSON, verr.First(FieldTiles))
	assert.Contains(t, verr.Error(), "humanVerified")
}

func errOf(_ Submission, err error) error {
	return err
}
