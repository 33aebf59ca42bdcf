package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"mediavault/internal/domain"
)

func scanExtensions() []string {
	return []string{".mp4", ".mkv", ".avi"}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

func TestScanLibraryDiscovers(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]domain.RemoteEntry{
			"/video": {
				{Name: "Action", IsDirectory: true},
				{Name: "Drama", IsDirectory: true},
				{Name: "stray.mkv", SizeBytes: 100},
				{Name: "readme.txt", SizeBytes: 10},
			},
			"/video/Action": {
				{Name: "Heat.1995.1080p.mkv", SizeBytes: 1 << 30},
				{Name: "cover.jpg", SizeBytes: 2048},
			},
			"/video/Drama": {},
		},
	}
	movies := newFakeMovieRepo()
	categories := newFakeCategoryRepo()

	uc := ScanLibrary{
		Remote:     lister,
		Movies:     movies,
		Categories: categories,
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
		Now:        func() time.Time { return time.Unix(1700000000, 0) },
		NewID:      sequentialIDs(),
	}

	result, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if !result.Success {
		t.Fatalf("scan not successful: %v", result.Errors)
	}
	if result.CategoriesCreated != 2 {
		t.Fatalf("categories created = %d, want 2", result.CategoriesCreated)
	}
	// Heat.mkv in Action plus the stray root-level file; jpg and txt ignored.
	if result.MoviesDiscovered != 2 {
		t.Fatalf("movies discovered = %d, want 2", result.MoviesDiscovered)
	}

	movie, err := movies.GetByRemotePath(context.Background(), "/video/Action/Heat.1995.1080p.mkv")
	if err != nil {
		t.Fatalf("discovered movie not persisted: %v", err)
	}
	if movie.Status != domain.MoviePending {
		t.Fatalf("status = %s, want pending", movie.Status)
	}
	if movie.Title != "Heat" || movie.Year != 1995 {
		t.Fatalf("title/year = %q/%d", movie.Title, movie.Year)
	}
	if movie.ContentType != "video/x-matroska" {
		t.Fatalf("contentType = %q", movie.ContentType)
	}
	if movie.RemoteRef != movie.RemotePath {
		t.Fatal("scanner movies must keep remoteRef equal to remotePath")
	}
	if movie.CategoryID == "" {
		t.Fatal("movie must be attached to its folder category")
	}

	stray, err := movies.GetByRemotePath(context.Background(), "/video/stray.mkv")
	if err != nil {
		t.Fatalf("root-level movie not persisted: %v", err)
	}
	if stray.CategoryID != "" {
		t.Fatal("root-level movie must have no category")
	}
}

func TestScanLibraryRescanSkipsKnown(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]domain.RemoteEntry{
			"/video": {
				{Name: "Action", IsDirectory: true},
			},
			"/video/Action": {
				{Name: "Heat.mkv", SizeBytes: 500},
			},
		},
	}
	movies := newFakeMovieRepo()
	categories := newFakeCategoryRepo()
	uc := ScanLibrary{
		Remote:     lister,
		Movies:     movies,
		Categories: categories,
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
		NewID:      sequentialIDs(),
	}

	first, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if first.MoviesDiscovered != 1 || first.CategoriesCreated != 1 {
		t.Fatalf("first scan = %+v", first)
	}

	second, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if second.MoviesDiscovered != 0 {
		t.Fatalf("second scan discovered = %d, want 0", second.MoviesDiscovered)
	}
	if second.MoviesSkipped != 1 {
		t.Fatalf("second scan skipped = %d, want 1", second.MoviesSkipped)
	}
	if second.CategoriesCreated != 0 {
		t.Fatalf("second scan created categories = %d, want 0", second.CategoriesCreated)
	}
}

func TestScanLibraryAdoptsCategoryByName(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]domain.RemoteEntry{
			"/video":        {{Name: "Action", IsDirectory: true}},
			"/video/Action": {},
		},
	}
	categories := newFakeCategoryRepo(domain.Category{ID: "c1", Name: "Action"})
	uc := ScanLibrary{
		Remote:     lister,
		Movies:     newFakeMovieRepo(),
		Categories: categories,
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
		NewID:      sequentialIDs(),
	}

	result, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.CategoriesCreated != 0 || result.CategoriesUpdated != 1 {
		t.Fatalf("created/updated = %d/%d, want 0/1", result.CategoriesCreated, result.CategoriesUpdated)
	}

	adopted, err := categories.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("adopted category missing: %v", err)
	}
	if adopted.RemotePath != "/video/Action" {
		t.Fatalf("remotePath = %q, want /video/Action", adopted.RemotePath)
	}
}

func TestScanLibraryFolderFailureDoesNotAbort(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]domain.RemoteEntry{
			"/video": {
				{Name: "Action", IsDirectory: true},
				{Name: "Broken", IsDirectory: true},
			},
			"/video/Action": {
				{Name: "Heat.mkv", SizeBytes: 500},
			},
		},
		failures: map[string]error{
			"/video/Broken": errors.New("remote timeout"),
		},
	}
	uc := ScanLibrary{
		Remote:     lister,
		Movies:     newFakeMovieRepo(),
		Categories: newFakeCategoryRepo(),
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
		NewID:      sequentialIDs(),
	}

	result, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("scan must not fail outright: %v", err)
	}
	if result.Success {
		t.Fatal("scan with folder errors must not report success")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "/video/Broken") {
		t.Fatalf("errors = %v", result.Errors)
	}
	if result.MoviesDiscovered != 1 {
		t.Fatalf("healthy folder not scanned, discovered = %d", result.MoviesDiscovered)
	}
}

func TestScanLibraryResetsMovedSource(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]domain.RemoteEntry{
			"/video": {{Name: "Action", IsDirectory: true}},
			"/video/Action": {
				{Name: "Heat.mkv", SizeBytes: 500},
			},
		},
	}
	movies := newFakeMovieRepo(domain.Movie{
		ID:         "m1",
		Title:      "Heat",
		RemoteRef:  "https://mega.nz/file/old-export",
		RemotePath: "/video/Action/Heat.mkv",
		LocalPath:  "/cache/m1-Heat.mkv",
		FileSize:   500,
		Status:     domain.MovieReady,
		CategoryID: "c1",
	})
	uc := ScanLibrary{
		Remote:     lister,
		Movies:     movies,
		Categories: newFakeCategoryRepo(),
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
		Now:        func() time.Time { return time.Unix(1700000000, 0) },
		NewID:      sequentialIDs(),
	}

	result, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("scan not successful: %v", result.Errors)
	}
	if result.MoviesReset != 1 || result.MoviesSkipped != 0 || result.MoviesDiscovered != 0 {
		t.Fatalf("reset/skipped/discovered = %d/%d/%d, want 1/0/0",
			result.MoviesReset, result.MoviesSkipped, result.MoviesDiscovered)
	}

	reset, err := movies.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("reset movie missing: %v", err)
	}
	if reset.Status != domain.MoviePending {
		t.Fatalf("status = %s, want pending", reset.Status)
	}
	if reset.LocalPath != "" || reset.FileSize != 0 {
		t.Fatalf("cached state not cleared: localPath=%q fileSize=%d", reset.LocalPath, reset.FileSize)
	}
	if reset.RemoteRef != reset.RemotePath {
		t.Fatalf("remoteRef = %q, want %q", reset.RemoteRef, reset.RemotePath)
	}
}

func TestScanLibraryLostCreateRaceCountsAsSkip(t *testing.T) {
	lister := &fakeLister{
		listings: map[string][]domain.RemoteEntry{
			"/video": {{Name: "Action", IsDirectory: true}},
			"/video/Action": {
				{Name: "Heat.mkv", SizeBytes: 500},
			},
		},
	}
	// Another writer inserts the movie between the lookup and the create.
	movies := newFakeMovieRepo()
	movies.createErr = domain.ErrAlreadyExists
	uc := ScanLibrary{
		Remote:     lister,
		Movies:     movies,
		Categories: newFakeCategoryRepo(),
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
		NewID:      sequentialIDs(),
	}

	result, err := uc.Execute(context.Background(), "/video")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("lost create race must stay a skip, got errors: %v", result.Errors)
	}
	if result.MoviesSkipped != 1 || result.MoviesDiscovered != 0 {
		t.Fatalf("skipped/discovered = %d/%d, want 1/0", result.MoviesSkipped, result.MoviesDiscovered)
	}
}

func TestScanLibraryRootFailure(t *testing.T) {
	lister := &fakeLister{
		failures: map[string]error{"/video": errors.New("not logged in")},
	}
	uc := ScanLibrary{
		Remote:     lister,
		Movies:     newFakeMovieRepo(),
		Categories: newFakeCategoryRepo(),
		Extensions: scanExtensions(),
		Logger:     slog.New(slog.DiscardHandler),
	}

	if _, err := uc.Execute(context.Background(), "/video"); err == nil {
		t.Fatal("unlistable root must fail the scan")
	}
}
