package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/models"
	"go.uber.org/zap"
)

// LinkRepository CRUD и пагинация коротких ссылок поверх источника данных.
// Хранит последнюю успешно полученную страницу: при ошибке чтения вид
// показывает прежние данные рядом с ошибкой, а не пустой экран.
type LinkRepository interface {
	Create(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error)
	List(ctx context.Context, userID string, p models.Pagination) (*models.LinkPage, error)
	// EnsureInitialLoad выполняет первую загрузку ровно один раз на identity
	// (повторные вызовы и гонки отдают уже имеющийся результат);
	// смена identity сбрасывает состояние. Второе значение — сработала ли загрузка.
	EnsureInitialLoad(ctx context.Context, identity string, p models.Pagination) (*models.LinkPage, bool, error)
	Update(ctx context.Context, id string, input *models.UpdateLinkInput) (*models.ShortLink, error)
	Delete(ctx context.Context, id string) error
	LastKnown() *models.LinkPage
}

type loadState int

const (
	loadUninitialized loadState = iota
	loadLoading
	loadLoaded
)

type linkRepository struct {
	source datasource.ShortLinkDataSource
	logger *zap.Logger

	mu            sync.Mutex
	lastPage      *models.LinkPage
	guardIdentity string
	guardState    loadState
}

func NewLinkRepository(source datasource.ShortLinkDataSource, logger *zap.Logger) LinkRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkRepository{
		source: source,
		logger: logger,
	}
}

func (r *linkRepository) Create(ctx context.Context, input *models.CreateLinkInput) (*models.ShortLink, error) {
	link, err := r.source.CreateLink(ctx, input)
	if err != nil {
		return nil, err
	}
	// локальный список не трогаем: после успешного создания
	// вызывающая сторона перечитывает страницу из источника
	r.logger.Info("Short link created",
		zap.String("id", link.ID),
		zap.String("short_code", link.ShortCode),
	)
	return link, nil
}

func (r *linkRepository) List(ctx context.Context, userID string, p models.Pagination) (*models.LinkPage, error) {
	page, err := r.source.ListLinks(ctx, userID, p)
	if err != nil {
		r.logger.Warn("List fetch failed, keeping last known page", zap.Error(err))
		return r.LastKnown(), err
	}

	r.mu.Lock()
	r.lastPage = page
	r.mu.Unlock()
	return copyPage(page), nil
}

func (r *linkRepository) EnsureInitialLoad(ctx context.Context, identity string, p models.Pagination) (*models.LinkPage, bool, error) {
	r.mu.Lock()
	if r.guardIdentity != identity {
		// смена пользователя или сессии: начинаем с чистого состояния
		r.guardIdentity = identity
		r.guardState = loadUninitialized
		r.lastPage = nil
	}

	switch r.guardState {
	case loadLoaded, loadLoading:
		page := copyPage(r.lastPage)
		r.mu.Unlock()
		return page, false, nil
	}

	r.guardState = loadLoading
	r.mu.Unlock()

	page, err := r.source.ListLinks(ctx, identity, p)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.guardIdentity != identity {
		// за время запроса сессия сменилась, результат устарел
		return nil, true, err
	}
	if err != nil {
		// неудача не фиксирует guard: ручной retry снова попадёт сюда
		r.guardState = loadUninitialized
		return copyPage(r.lastPage), true, err
	}
	r.guardState = loadLoaded
	r.lastPage = page
	return copyPage(page), true, nil
}

func (r *linkRepository) Update(ctx context.Context, id string, input *models.UpdateLinkInput) (*models.ShortLink, error) {
	link, err := r.source.UpdateLink(ctx, id, input)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.lastPage != nil {
		for i := range r.lastPage.Items {
			if r.lastPage.Items[i].ID == id {
				r.lastPage.Items[i] = *link
				break
			}
		}
	}
	r.mu.Unlock()
	return link, nil
}

func (r *linkRepository) Delete(ctx context.Context, id string) error {
	err := r.source.DeleteLink(ctx, id)
	if err != nil && !errors.Is(err, datasource.ErrNotFound) {
		return err
	}

	// запись убирается из локальной страницы и при NotFound:
	// повторное удаление сообщает об ошибке, но состояние остаётся согласованным
	r.mu.Lock()
	if r.lastPage != nil {
		for i := range r.lastPage.Items {
			if r.lastPage.Items[i].ID == id {
				r.lastPage.Items = append(r.lastPage.Items[:i], r.lastPage.Items[i+1:]...)
				r.lastPage.TotalLinks--
				break
			}
		}
	}
	r.mu.Unlock()
	return err
}

func (r *linkRepository) LastKnown() *models.LinkPage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyPage(r.lastPage)
}

func copyPage(p *models.LinkPage) *models.LinkPage {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Items = make([]models.ShortLink, len(p.Items))
	copy(copied.Items, p.Items)
	return &copied
}
