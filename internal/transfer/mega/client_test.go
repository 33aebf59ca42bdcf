package mega

import (
	"bufio"
	"log/slog"
	"strings"
	"testing"
)

func TestScanProgress(t *testing.T) {
	// mega-get redraws its progress bar with carriage returns.
	output := "TRANSFERRING ||#####-----|(10/100 MB:  10 %) " +
		"\rTRANSFERRING ||######----|(45/100 MB:  45 %) " +
		"\rTRANSFERRING ||######----|(45/100 MB:  45 %) " +
		"\rTRANSFERRING ||##########|(100/100 MB: 100 %) \n" +
		"Download finished\n"

	c := NewClient("mega-ls", "mega-get", slog.New(slog.DiscardHandler))

	var percents []int
	c.scanProgress(strings.NewReader(output), "/video/Heat.mkv", func(bytesDownloaded, totalBytes int64, percent int) {
		if bytesDownloaded != 0 || totalBytes != 0 {
			t.Errorf("cli ticks must not carry byte counts, got %d/%d", bytesDownloaded, totalBytes)
		}
		percents = append(percents, percent)
	})

	want := []int{10, 45, 100}
	if len(percents) != len(want) {
		t.Fatalf("percents = %v, want %v", percents, want)
	}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("percents = %v, want %v", percents, want)
		}
	}
}

func TestScanLinesCR(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("one\rtwo\nthree"))
	scanner.Split(scanLinesCR)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %v, want %v", lines, want)
		}
	}
}
