package illustration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vincent-petithory/dataurl"

	"github.com/coreybb/storybook/models"
)

func TestStyleForAgeBands(t *testing.T) {
	for age := models.MinAge; age <= models.MaxAge; age++ {
		want := styleOlder
		if age <= 8 {
			want = styleYoung
		}
		assert.Equal(t, want, StyleFor(age), "age %d", age)
	}
}

func TestGenerateKeepsOrderAndPrefixesStyle(t *testing.T) {
	var requests []ImageRequest
	client := ImageClientFunc(func(_ context.Context, req ImageRequest) (string, error) {
		requests = append(requests, req)
		return fmt.Sprintf("https://img.example/%d.png", len(requests)), nil
	})
	g, err := NewGenerator(client, "", nil)
	require.NoError(t, err)

	urls, err := g.Generate(context.Background(), []string{"a fox", "a hen", "a barn"}, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://img.example/1.png",
		"https://img.example/2.png",
		"https://img.example/3.png",
	}, urls)

	require.Len(t, requests, 3)
	assert.Equal(t, "A children's book illustration in a bright, colorful, and cartoony style. a fox", requests[0].Prompt)
	assert.Equal(t, DefaultSize, requests[0].Size)
	assert.True(t, strings.HasSuffix(requests[2].Prompt, "a barn"))
}

func TestGenerateOlderStyle(t *testing.T) {
	var prompt string
	g, err := NewGenerator(ImageClientFunc(func(_ context.Context, req ImageRequest) (string, error) {
		prompt = req.Prompt
		return "https://img.example/x.png", nil
	}), "512x512", nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), []string{"a lighthouse"}, 11)
	require.NoError(t, err)
	assert.Contains(t, prompt, "realistic and detailed style")
}

func TestGenerateAbortsWholeBatch(t *testing.T) {
	tests := []struct {
		name   string
		result func(call int) (string, error)
	}{
		{"error on second", func(call int) (string, error) {
			if call == 2 {
				return "", errors.New("content policy")
			}
			return "https://img.example/ok.png", nil
		}},
		{"empty url on second", func(call int) (string, error) {
			if call == 2 {
				return "", nil
			}
			return "https://img.example/ok.png", nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			g, err := NewGenerator(ImageClientFunc(func(context.Context, ImageRequest) (string, error) {
				calls++
				return tt.result(calls)
			}), "", nil)
			require.NoError(t, err)

			urls, err := g.Generate(context.Background(), []string{"one", "two", "three"}, 7)
			assert.Nil(t, urls)
			assert.True(t, models.IsKind(err, models.KindGeneration))
			assert.Equal(t, 2, calls, "no requests after the failing one")
		})
	}
}

func TestPlaceholderImageClient(t *testing.T) {
	url, err := PlaceholderImageClient{}.GenerateImage(context.Background(), ImageRequest{Prompt: "a cat"})
	require.NoError(t, err)

	du, err := dataurl.DecodeString(url)
	require.NoError(t, err)
	assert.Equal(t, "image/png", du.MediaType.ContentType())
	assert.NotEmpty(t, du.Data)
}
