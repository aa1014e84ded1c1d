package labelformat

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DefaultRequest(t *testing.T) {
	req := DefaultRequest()
	req.Text = []TextLineSpec{{Text: "Hello", Size: 70, Align: "center"}}

	if err := Validate(&req); err != nil {
		t.Errorf("Expected valid request, got error: %v", err)
	}
}

func TestValidate_UnknownLabelSize(t *testing.T) {
	req := DefaultRequest()
	req.LabelSize = "999"

	err := Validate(&req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLabelSize))
}

func TestValidate_FontSize(t *testing.T) {
	req := DefaultRequest()
	req.Text = []TextLineSpec{{Text: "x"}}
	err := Validate(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "font size is required")

	req.Text[0].Size = -3
	err = Validate(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestValidate_TextTooLong(t *testing.T) {
	req := DefaultRequest()
	req.Text = []TextLineSpec{{Text: strings.Repeat("a", MaxTextLength+1), Size: 10}}

	err := Validate(&req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTextTooLong))

	req.Text[0].Text = strings.Repeat("ä", MaxTextLength)
	assert.NoError(t, Validate(&req))
}

func TestValidate_Alignment(t *testing.T) {
	req := DefaultRequest()
	req.Text = []TextLineSpec{{Text: "x", Size: 10, Align: "justify"}}

	err := Validate(&req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported alignment")
}

func TestValidate_PrintCount(t *testing.T) {
	req := DefaultRequest()
	req.PrintCount = 0

	assert.Error(t, Validate(&req))
}

func TestParse_AppliesDefaults(t *testing.T) {
	req, err := Parse([]byte(`{"label_size":"29x90","text":[{"text":"A","size":40}],"code_text":"  abc  "}`))
	require.NoError(t, err)

	assert.Equal(t, "29x90", req.LabelSize)
	assert.Equal(t, 12, req.MarginTop)
	assert.Equal(t, 20, req.MarginLeft)
	assert.Equal(t, "QR", req.BarcodeType)
	assert.True(t, req.ImageFit)
	assert.Equal(t, "abc", req.CodeText)
	require.Len(t, req.Text, 1)
	assert.Equal(t, 40, req.Text[0].Size)
}

func TestParse_LegacyImageMode(t *testing.T) {
	req, err := Parse([]byte(`{"image_mode":"red_and_black"}`))
	require.NoError(t, err)
	assert.Equal(t, ImageRedBlack, req.ImageMode)
}

func TestDecodeText(t *testing.T) {
	lines, err := DecodeText(`[{"text":"a","size":12,"align":"left","inverted":true}]`)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Inverted)

	lines, err = DecodeText("")
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = DecodeText("{not json")
	assert.Error(t, err)
}

func TestDimensions(t *testing.T) {
	w, h, err := Dimensions("62", false)
	require.NoError(t, err)
	assert.Equal(t, 696, w)
	assert.Equal(t, 0, h)

	w, h, err = Dimensions("62x29", true)
	require.NoError(t, err)
	assert.Equal(t, 1392, w)
	assert.Equal(t, 542, h)

	_, _, err = Dimensions("nope", false)
	assert.ErrorIs(t, err, ErrUnknownLabelSize)
}

func TestLookupSize_FormFactors(t *testing.T) {
	cases := map[string]FormFactor{
		"62":     Endless,
		"62red":  Endless,
		"62x100": DieCut,
		"d24":    RoundDieCut,
	}
	for id, want := range cases {
		size, err := LookupSize(id)
		require.NoError(t, err, id)
		assert.Equal(t, want, size.FormFactor, id)
	}

	red, _ := LookupSize("62red")
	assert.True(t, red.Red)
	assert.Equal(t, "62mm endless", HumanName("62"))
	assert.Equal(t, "xyz", HumanName("xyz"))
}
