package goods

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Значение фильтра «все категории»
const AllCategories = "all"

// Categories - категории витрины
var Categories = []string{"电子产品", "服装鞋帽", "图书文具", "生活用品", "体育用品", "其他"}

var (
	ErrSubmitting = errors.New("正在提交，请勿重复操作")
	ErrNoName     = errors.New("请输入商品名称")
	ErrBadPrice   = errors.New("价格不能为负数")
	ErrNoCategory = errors.New("请选择商品分类")
	ErrNoID       = errors.New("缺少商品ID")
)

// SortField - поле сортировки витрины
type SortField string

const (
	SortByCreateTime SortField = "createTime"
	SortByPrice      SortField = "price"
	SortByName       SortField = "name"
)

// SortOrder - направление сортировки
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Query описывает фильтр и сортировку витрины
type Query struct {
	Category string
	Keyword  string
	SortBy   SortField
	Order    SortOrder
}

// API - вызовы бэкенда для объявлений
type API interface {
	ListGoods(ctx context.Context) ([]models.Goods, error)
	GetGoods(ctx context.Context, id int64) (*models.Goods, error)
	CreateGoods(ctx context.Context, goods models.Goods) error
	UpdateGoods(ctx context.Context, goods models.Goods) error
	DeleteGoods(ctx context.Context, id int64) error
}

// Filter отбирает и сортирует объявления на стороне клиента
func Filter(list []models.Goods, q Query) []models.Goods {
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))

	out := make([]models.Goods, 0, len(list))
	for _, g := range list {
		if q.Category != "" && q.Category != AllCategories && g.Category != q.Category {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(g.Name), keyword) &&
			!strings.Contains(strings.ToLower(g.Description), keyword) {
			continue
		}
		out = append(out, g)
	}

	var compare func(a, b models.Goods) int
	switch q.SortBy {
	case SortByPrice:
		compare = func(a, b models.Goods) int { return cmp.Compare(a.Price, b.Price) }
	case SortByName:
		// Названия в основном китайские: порядок по правилам языка, а не по байтам
		collator := collate.New(language.Chinese)
		compare = func(a, b models.Goods) int { return collator.CompareString(a.Name, b.Name) }
	default:
		compare = func(a, b models.Goods) int { return a.CreateTime.Compare(b.CreateTime.Time) }
	}

	order := q.Order
	if order != Asc {
		order = Desc
	}
	slices.SortStableFunc(out, func(a, b models.Goods) int {
		if order == Asc {
			return compare(a, b)
		}
		return compare(b, a)
	})
	return out
}

// Catalog работает с объявлениями через бэкенд
type Catalog struct {
	api API
	log *logger.Logger

	mu         sync.Mutex
	submitting map[string]bool
}

// NewCatalog создает новый экземпляр Catalog
func NewCatalog(api API, log *logger.Logger) *Catalog {
	log = logger.OrNop(log)
	return &Catalog{
		api:        api,
		log:        log.Named("goods"),
		submitting: make(map[string]bool),
	}
}

// List загружает все объявления и применяет фильтр
func (c *Catalog) List(ctx context.Context, q Query) ([]models.Goods, error) {
	list, err := c.api.ListGoods(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(list, q), nil
}

// Get возвращает объявление по ID
func (c *Catalog) Get(ctx context.Context, id int64) (*models.Goods, error) {
	return c.api.GetGoods(ctx, id)
}

// Create публикует объявление. Пока запрос того же пользователя не завершен,
// повторная отправка возвращает ErrSubmitting.
func (c *Catalog) Create(ctx context.Context, ownerID int64, g models.Goods) error {
	g = prepare(g)
	if err := validate(g); err != nil {
		return err
	}

	release, err := c.begin(fmt.Sprintf("create:%d", ownerID))
	if err != nil {
		return err
	}
	defer release()

	// Продавца бэкенд берет из токена
	g.ID = 0
	g.SellerID = 0
	if err := c.api.CreateGoods(ctx, g); err != nil {
		return err
	}
	c.log.Info("объявление опубликовано", zap.Int64("seller_id", ownerID), zap.String("name", g.Name))
	return nil
}

// Update сохраняет изменения объявления
func (c *Catalog) Update(ctx context.Context, g models.Goods) error {
	if g.ID == 0 {
		return ErrNoID
	}
	g = prepare(g)
	if err := validate(g); err != nil {
		return err
	}

	release, err := c.begin(fmt.Sprintf("update:%d", g.ID))
	if err != nil {
		return err
	}
	defer release()

	return c.api.UpdateGoods(ctx, g)
}

// Delete удаляет объявление
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return ErrNoID
	}
	return c.api.DeleteGoods(ctx, id)
}

func (c *Catalog) begin(key string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting[key] {
		return nil, ErrSubmitting
	}
	c.submitting[key] = true
	return func() {
		c.mu.Lock()
		delete(c.submitting, key)
		c.mu.Unlock()
	}, nil
}

// prepare нормализует поля формы; blob: ссылки живут только в браузере
func prepare(g models.Goods) models.Goods {
	g.Name = strings.TrimSpace(g.Name)
	g.Description = strings.TrimSpace(g.Description)
	if strings.HasPrefix(g.ImageURL, "blob:") {
		g.ImageURL = ""
	}
	if g.Status == "" {
		g.Status = models.GoodsActive
	}
	return g
}

func validate(g models.Goods) error {
	switch {
	case g.Name == "":
		return ErrNoName
	case g.Price < 0:
		return ErrBadPrice
	case g.Category == "":
		return ErrNoCategory
	}
	return nil
}
