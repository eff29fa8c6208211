package goods

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/campus-market/internal/config"
	"github.com/rajivgeraev/campus-market/internal/models"
)

func item(id int64, name, desc, category string, price float64, created string) models.Goods {
	ts, err := models.ParseLocalTime(created)
	if err != nil {
		panic(err)
	}
	return models.Goods{ID: id, Name: name, Description: desc, Category: category, Price: price, CreateTime: ts}
}

func ids(list []models.Goods) []int64 {
	out := make([]int64, 0, len(list))
	for _, g := range list {
		out = append(out, g.ID)
	}
	return out
}

var shelf = []models.Goods{
	item(1, "自行车", "九成新 山地车", "体育用品", 150, "2025-05-01T10:00:00"),
	item(2, "iPad Air", "带笔 屏幕无划痕", "电子产品", 1800, "2025-05-03T09:00:00"),
	item(3, "高等数学", "教材 附笔记", "图书文具", 20, "2025-05-02T12:00:00"),
	item(4, "台灯", "护眼 USB", "生活用品", 35, "2025-04-28T08:00:00"),
}

func TestFilter_CategoryAndKeyword(t *testing.T) {
	assert.Equal(t, []int64{2}, ids(Filter(shelf, Query{Category: "电子产品"})))
	assert.Len(t, Filter(shelf, Query{Category: AllCategories}), 4)

	// Поиск без учета регистра по названию и описанию
	assert.Equal(t, []int64{2}, ids(Filter(shelf, Query{Keyword: "ipad"})))
	assert.Equal(t, []int64{4}, ids(Filter(shelf, Query{Keyword: " usb "})))
	assert.Equal(t, []int64{2, 3}, ids(Filter(shelf, Query{Keyword: "笔"})))
	assert.Empty(t, Filter(shelf, Query{Category: "图书文具", Keyword: "ipad"}))
}

func TestFilter_Sort(t *testing.T) {
	assert.Equal(t, []int64{2, 3, 1, 4}, ids(Filter(shelf, Query{})))
	assert.Equal(t, []int64{4, 1, 3, 2}, ids(Filter(shelf, Query{SortBy: SortByCreateTime, Order: Asc})))
	assert.Equal(t, []int64{3, 4, 1, 2}, ids(Filter(shelf, Query{SortBy: SortByPrice, Order: Asc})))
	assert.Equal(t, []int64{2, 1, 4, 3}, ids(Filter(shelf, Query{SortBy: SortByPrice, Order: Desc})))

	byName := Filter(shelf, Query{SortBy: SortByName, Order: Asc})
	require.Len(t, byName, 4)
	// Латиница идет раньше иероглифов
	assert.Equal(t, int64(2), byName[0].ID)
}

type fakeGoodsAPI struct {
	mu      sync.Mutex
	created []models.Goods
	gate    chan struct{}
}

func (f *fakeGoodsAPI) ListGoods(context.Context) ([]models.Goods, error) { return shelf, nil }

func (f *fakeGoodsAPI) GetGoods(_ context.Context, id int64) (*models.Goods, error) {
	g := shelf[0]
	g.ID = id
	return &g, nil
}

func (f *fakeGoodsAPI) CreateGoods(_ context.Context, g models.Goods) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, g)
	return nil
}

func (f *fakeGoodsAPI) UpdateGoods(context.Context, models.Goods) error { return nil }

func (f *fakeGoodsAPI) DeleteGoods(context.Context, int64) error { return nil }

func TestCatalog_CreateDropsBlobImagesAndSeller(t *testing.T) {
	api := &fakeGoodsAPI{}
	c := NewCatalog(api, nil)

	err := c.Create(context.Background(), 7, models.Goods{
		Name:     "  台灯 ",
		Category: "生活用品",
		Price:    30,
		ImageURL: "blob:http://localhost:5173/1c2d",
		SellerID: 99,
	})
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Equal(t, "台灯", api.created[0].Name)
	assert.Empty(t, api.created[0].ImageURL)
	assert.Zero(t, api.created[0].SellerID)
	assert.Equal(t, models.GoodsActive, api.created[0].Status)
}

func TestCatalog_Validation(t *testing.T) {
	c := NewCatalog(&fakeGoodsAPI{}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, c.Create(ctx, 1, models.Goods{Category: "其他"}), ErrNoName)
	assert.ErrorIs(t, c.Create(ctx, 1, models.Goods{Name: "x", Category: "其他", Price: -1}), ErrBadPrice)
	assert.ErrorIs(t, c.Create(ctx, 1, models.Goods{Name: "x"}), ErrNoCategory)
	assert.ErrorIs(t, c.Update(ctx, models.Goods{Name: "x", Category: "其他"}), ErrNoID)
	assert.ErrorIs(t, c.Delete(ctx, 0), ErrNoID)
}

func TestCatalog_DuplicateSubmit(t *testing.T) {
	api := &fakeGoodsAPI{gate: make(chan struct{})}
	c := NewCatalog(api, nil)
	g := models.Goods{Name: "台灯", Category: "生活用品", Price: 30}

	done := make(chan error, 1)
	go func() { done <- c.Create(context.Background(), 7, g) }()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.submitting["create:7"]
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, c.Create(context.Background(), 7, g), ErrSubmitting)

	close(api.gate)
	require.NoError(t, <-done)
	require.NoError(t, c.Create(context.Background(), 7, g))
	assert.Len(t, api.created, 2)
}

func TestSign(t *testing.T) {
	// Пример из документации Cloudinary
	params := map[string]string{
		"timestamp": "1315060510",
		"public_id": "sample_image",
		"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
	}
	assert.Equal(t, "bfd09f95f331f558cbd1320e67aa8d488770583e", Sign(params, "abcd"))
}

func TestImages_SignedParams(t *testing.T) {
	images, err := NewImages(config.CloudinaryConfig{
		CloudName:    "demo",
		APIKey:       "key",
		APISecret:    "secret",
		UploadFolder: "campus",
	})
	require.NoError(t, err)
	assert.True(t, images.Enabled())

	params, err := images.SignedParams(time.Unix(1700000000, 0), "bike")
	require.NoError(t, err)
	assert.Equal(t, "1700000000", params.Timestamp)
	assert.Equal(t, "c2d6672a567613c388b90b268deeaa244bf7fd62", params.Signature)
	assert.Equal(t, "demo", params.CloudName)

	disabled, err := NewImages(config.CloudinaryConfig{})
	require.NoError(t, err)
	_, err = disabled.SignedParams(time.Now(), "")
	assert.ErrorIs(t, err, ErrImagesDisabled)
	_, err = disabled.Upload(context.Background(), nil, "a.png")
	assert.ErrorIs(t, err, ErrImagesDisabled)
}

func TestPublicID(t *testing.T) {
	id := publicID("my photo.jpg")
	assert.Regexp(t, `^my_photo_[0-9a-f]{8}$`, id)
	assert.Regexp(t, `^goods_`, publicID(".png"))
}
