package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slick-storefront/internal/domain"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/infrastructure/store/mocks"
	"github.com/example/slick-storefront/internal/logger"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "IE8593", Name: "Runfalcon 5 Kids Schuh", Price: 1299000, Category: "Trẻ em", Description: "Giày chạy bộ cho trẻ em"},
		{ID: "IG7323", Name: "Racer TR23 Schuh", Price: 2199000, Category: "Nam", Description: "Lifestyle lấy cảm hứng từ running", IsTrending: true},
		{ID: "IH5467", Name: "Breaknet Sleek Schuh", Price: 1899000, Category: "Nữ", Description: "Phiên bản nữ tính", IsTrending: true},
		{ID: "HQ4199", Name: "Ultraboost 1.0 Laufschuh", Price: 4599000, Category: "Unisex", Description: "Đế Boost êm ái", IsTrending: true},
		{ID: "HP9426", Name: "Breaknet 2.0 Schuh", Price: 1999000, Category: "Unisex", Description: "Phong cách tennis cổ điển", IsTrending: true},
	}
}

func newTestReader() (*catalog.Reader, *mocks.MockProductSource) {
	source := mocks.NewMockProductSource(testProducts()...)
	return catalog.NewReader(source, source, logger.Discard()), source
}

func ids(products []catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// ============================================
// GetAll / GetByID Tests
// ============================================

func TestReader_GetAll_KeepsSourceOrder(t *testing.T) {
	reader, _ := newTestReader()

	products, err := reader.GetAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"IE8593", "IG7323", "IH5467", "HQ4199", "HP9426"}, ids(products))
	for _, p := range products {
		assert.NotNil(t, p.Sizes)
		assert.NotNil(t, p.Colors)
	}
}

func TestReader_GetAll_BackendFailureIsEmptyButDistinguishable(t *testing.T) {
	reader, source := newTestReader()
	source.ListErr = errors.New("dial tcp: connection refused")

	products, err := reader.GetAll(context.Background())

	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestReader_GetAll_EmptyCatalogIsNotAnError(t *testing.T) {
	reader := catalog.NewReader(mocks.NewMockProductSource(), nil, logger.Discard())

	products, err := reader.GetAll(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, products)
}

func TestReader_GetByID(t *testing.T) {
	reader, source := newTestReader()
	ctx := context.Background()

	p, err := reader.GetByID(ctx, "HQ4199")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(4599000), p.Price)

	p, err = reader.GetByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = reader.GetByID(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, p)

	source.GetErr = errors.New("throttled")
	p, err = reader.GetByID(ctx, "HQ4199")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

// ============================================
// Trending / Search Tests
// ============================================

func TestReader_GetTrending_AtMostThreeInOrder(t *testing.T) {
	reader, _ := newTestReader()

	products, err := reader.GetTrending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"IG7323", "IH5467", "HQ4199"}, ids(products))
}

func TestReader_GetTrending_NoneFlagged(t *testing.T) {
	reader := catalog.NewReader(mocks.NewMockProductSource(catalog.Product{ID: "x"}), nil, logger.Discard())

	products, err := reader.GetTrending(context.Background())

	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestReader_Search_EmptyQueryEqualsGetAll(t *testing.T) {
	reader, _ := newTestReader()
	ctx := context.Background()

	all, err := reader.GetAll(ctx)
	require.NoError(t, err)

	for _, q := range []string{"", "   "} {
		found, err := reader.Search(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, all, found)
	}
}

func TestReader_Search_CaseInsensitiveNameAndDescription(t *testing.T) {
	reader, _ := newTestReader()
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{"BREAKNET", []string{"IH5467", "HP9426"}},
		{"tennis", []string{"HP9426"}},
		{"TRẺ EM", []string{"IE8593"}},
		{"schuh", []string{"IE8593", "IG7323", "IH5467", "HQ4199", "HP9426"}},
		{"laufschuh", []string{"HQ4199"}},
		{"sandal", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			found, err := reader.Search(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(found))
		})
	}
}

// ============================================
// Category / Sort Tests
// ============================================

func TestReader_ByCategory(t *testing.T) {
	reader, _ := newTestReader()

	unisex, err := reader.ByCategory(context.Background(), "Unisex")
	require.NoError(t, err)
	assert.Equal(t, []string{"HQ4199", "HP9426"}, ids(unisex))

	all, err := reader.ByCategory(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSorted(t *testing.T) {
	products := testProducts()

	assert.Equal(t, []string{"IE8593", "IH5467", "HP9426", "IG7323", "HQ4199"}, ids(catalog.Sorted(products, catalog.SortPriceAsc)))
	assert.Equal(t, []string{"HQ4199", "IG7323", "HP9426", "IH5467", "IE8593"}, ids(catalog.Sorted(products, catalog.SortPriceDesc)))
	assert.Equal(t, []string{"HP9426", "IH5467", "IG7323", "IE8593", "HQ4199"}, ids(catalog.Sorted(products, catalog.SortName)))
	assert.Equal(t, ids(products), ids(catalog.Sorted(products, catalog.SortDefault)))
	// input untouched
	assert.Equal(t, "IE8593", products[0].ID)
}

func TestSorted_VietnameseCollation(t *testing.T) {
	products := []catalog.Product{{ID: "d", Name: "Đen"}, {ID: "e", Name: "Em"}, {ID: "a", Name: "Ấm"}, {ID: "dd", Name: "Dép"}}

	assert.Equal(t, []string{"a", "dd", "d", "e"}, ids(catalog.Sorted(products, catalog.SortName)))
}

// ============================================
// Testimonial Tests
// ============================================

func TestReader_Testimonials_FiltersAndDefaults(t *testing.T) {
	reader, source := newTestReader()
	no, yes := false, true
	role := "Vận động viên"
	rating := 4
	avatar := "https://i.pravatar.cc/48?img=5"

	source.AddTestimonial(catalog.TestimonialRecord{ID: "1", Name: "An", Text: "Rất tốt"})
	source.AddTestimonial(catalog.TestimonialRecord{ID: "2", Name: "Bình", Approved: &no})
	source.AddTestimonial(catalog.TestimonialRecord{ID: "3", Name: "Cường", Role: &role, Rating: &rating, Avatar: &avatar, Approved: &yes})

	got, err := reader.Testimonials(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, catalog.Testimonial{
		ID: "1", Name: "An", Text: "Rất tốt",
		Role:   catalog.DefaultTestimonialRole,
		Rating: catalog.DefaultTestimonialRating,
		Avatar: catalog.DefaultTestimonialAvatar,
	}, got[0])
	assert.Equal(t, "Vận động viên", got[1].Role)
	assert.Equal(t, 4, got[1].Rating)
	assert.Equal(t, avatar, got[1].Avatar)
}
