package usecase

import (
	"strconv"
	"strings"
)

// Window is the byte span actually served for one streaming request.
type Window struct {
	Start  int64
	End    int64
	Length int64
}

// ComputeWindow turns an optional "bytes=<start>-<end>" header into a serving
// window within [0, fileSize). Absent or malformed specifiers degrade to the
// whole file rather than failing; an open-ended range runs to EOF. The window
// never exceeds chunkSize bytes so a single request stays bounded.
func ComputeWindow(rangeHeader string, fileSize, chunkSize int64) Window {
	start, end, ok := parseByteRange(rangeHeader, fileSize)
	if !ok {
		start, end = 0, fileSize-1
	}

	if chunkSize > 0 && end-start+1 > chunkSize {
		end = start + chunkSize - 1
	}
	if end > fileSize-1 {
		end = fileSize - 1
	}

	return Window{Start: start, End: end, Length: end - start + 1}
}

func parseByteRange(header string, fileSize int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found {
		return 0, 0, false
	}
	startRaw, endRaw, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startRaw), 10, 64)
	if err != nil || start < 0 || start >= fileSize {
		return 0, 0, false
	}

	endRaw = strings.TrimSpace(endRaw)
	if endRaw == "" {
		return start, fileSize - 1, true
	}
	end, err = strconv.ParseInt(endRaw, 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}
	return start, end, true
}
