package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediavault/internal/domain"
	"mediavault/internal/domain/ports"
)

const scanCategoryConcurrency = 4

type ScanResult struct {
	CategoriesCreated int      `json:"categoriesCreated"`
	CategoriesUpdated int      `json:"categoriesUpdated"`
	MoviesDiscovered  int      `json:"moviesDiscovered"`
	MoviesSkipped     int      `json:"moviesSkipped"`
	MoviesReset       int      `json:"moviesReset"`
	Errors            []string `json:"errors"`
	Success           bool     `json:"success"`
}

// ScanLibrary reconciles one remote folder tree into category and movie
// records. Re-running it over an unchanged tree is a no-op: movies are keyed
// by their exact remote path.
type ScanLibrary struct {
	Remote     ports.RemoteLister
	Movies     ports.MovieRepository
	Categories ports.CategoryRepository
	Extensions []string // allowed video file extensions, lowercase with dot
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

func (uc ScanLibrary) Execute(ctx context.Context, rootPath string) (ScanResult, error) {
	now := uc.Now
	if now == nil {
		now = time.Now
	}
	newID := uc.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := uc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := uc.Remote.List(ctx, rootPath)
	if err != nil {
		return ScanResult{}, fmt.Errorf("list %s: %w", rootPath, err)
	}

	var (
		mu     sync.Mutex
		result ScanResult
	)
	addErr := func(msg string) {
		mu.Lock()
		result.Errors = append(result.Errors, msg)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanCategoryConcurrency)

	sortOrder := 0
	for _, entry := range entries {
		if !entry.IsDirectory {
			uc.reconcileFile(ctx, entry, rootPath, "", now, newID, &mu, &result)
			continue
		}

		sortOrder++
		category, created, updated, catErr := uc.resolveCategory(ctx, entry.Name, path.Join(rootPath, entry.Name), sortOrder, now, newID)
		if catErr != nil {
			addErr(fmt.Sprintf("category %s: %v", entry.Name, catErr))
			continue
		}
		mu.Lock()
		if created {
			result.CategoriesCreated++
		} else if updated {
			result.CategoriesUpdated++
		}
		mu.Unlock()

		folder := path.Join(rootPath, entry.Name)
		g.Go(func() error {
			sub, listErr := uc.Remote.List(gctx, folder)
			if listErr != nil {
				// One bad folder must not abort the whole scan.
				addErr(fmt.Sprintf("list %s: %v", folder, listErr))
				logger.Warn("scan folder failed",
					slog.String("folder", folder),
					slog.String("error", listErr.Error()),
				)
				return nil
			}
			for _, fileEntry := range sub {
				if fileEntry.IsDirectory {
					continue
				}
				uc.reconcileFile(gctx, fileEntry, folder, category.ID, now, newID, &mu, &result)
			}
			return nil
		})
	}

	_ = g.Wait()

	result.Success = len(result.Errors) == 0
	return result, nil
}

func (uc ScanLibrary) reconcileFile(
	ctx context.Context,
	entry domain.RemoteEntry,
	folder string,
	categoryID domain.CategoryID,
	now func() time.Time,
	newID func() string,
	mu *sync.Mutex,
	result *ScanResult,
) {
	if !uc.allowedExtension(entry.Name) {
		return
	}

	remotePath := path.Join(folder, entry.Name)
	existing, err := uc.Movies.GetByRemotePath(ctx, remotePath)
	if err == nil {
		if existing.RemoteRef != remotePath {
			// The remote source behind this path changed, so any cached bytes
			// are stale. Revert to pending and let a fresh download repair it.
			existing.ResetSource(remotePath)
			existing.UpdatedAt = now()
			if updErr := uc.Movies.Update(ctx, existing); updErr != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Sprintf("reset %s: %v", remotePath, updErr))
				mu.Unlock()
				return
			}
			mu.Lock()
			result.MoviesReset++
			mu.Unlock()
			return
		}
		mu.Lock()
		result.MoviesSkipped++
		mu.Unlock()
		return
	}
	if !errors.Is(err, domain.ErrNotFound) {
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("lookup %s: %v", remotePath, err))
		mu.Unlock()
		return
	}

	title, year := ParseTitle(entry.Name)
	movie := domain.Movie{
		ID:          domain.MovieID(newID()),
		Title:       title,
		Year:        year,
		RemoteRef:   remotePath,
		RemotePath:  remotePath,
		FileSize:    entry.SizeBytes,
		ContentType: ContentTypeForPath(entry.Name),
		Status:      domain.MoviePending,
		CategoryID:  categoryID,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	if err := uc.Movies.Create(ctx, movie); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the remotePath race to a concurrent scan; the record exists,
			// which is all this pass is for.
			mu.Lock()
			result.MoviesSkipped++
			mu.Unlock()
			return
		}
		mu.Lock()
		result.Errors = append(result.Errors, fmt.Sprintf("create %s: %v", remotePath, err))
		mu.Unlock()
		return
	}
	mu.Lock()
	result.MoviesDiscovered++
	mu.Unlock()
}

// resolveCategory finds the category for a remote folder, matching first by
// remote path, then by name, creating it when unknown.
func (uc ScanLibrary) resolveCategory(
	ctx context.Context,
	name, remotePath string,
	sortOrder int,
	now func() time.Time,
	newID func() string,
) (category domain.Category, created, updated bool, err error) {
	category, err = uc.Categories.GetByRemotePath(ctx, remotePath)
	if err == nil {
		return category, false, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Category{}, false, false, err
	}

	category, err = uc.Categories.GetByName(ctx, name)
	if err == nil {
		// Manually created category adopted by the scan: attach the remote
		// folder so future scans match it by path.
		category.RemotePath = remotePath
		category.UpdatedAt = now()
		if err := uc.Categories.Update(ctx, category); err != nil {
			return domain.Category{}, false, false, err
		}
		return category, false, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Category{}, false, false, err
	}

	category = domain.Category{
		ID:         domain.CategoryID(newID()),
		Name:       name,
		RemotePath: remotePath,
		SortOrder:  sortOrder,
		CreatedAt:  now(),
		UpdatedAt:  now(),
	}
	if err := uc.Categories.Create(ctx, category); err != nil {
		return domain.Category{}, false, false, err
	}
	return category, true, false, nil
}

func (uc ScanLibrary) allowedExtension(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, allowed := range uc.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
