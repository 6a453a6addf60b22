package ocr

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// TSV column layout emitted by tesseract: level page block par line word
// left top width height conf text.
const (
	tsvColumns = 12
	wordLevel  = "5"
)

// parseTSV extracts word-level rows from tesseract TSV output. Malformed
// rows are dropped rather than failing the whole frame; blank word boxes
// are kept so fragment indices reflect reading order.
func parseTSV(data []byte) []Fragment {
	var frags []Fragment

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "level\t") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < tsvColumns || cols[0] != wordLevel {
			continue
		}

		x, err1 := strconv.Atoi(cols[6])
		y, err2 := strconv.Atoi(cols[7])
		w, err3 := strconv.Atoi(cols[8])
		h, err4 := strconv.Atoi(cols[9])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil {
			conf = -1
		}

		frags = append(frags, Fragment{
			Text: cols[11],
			X:    x,
			Y:    y,
			W:    w,
			H:    h,
			Conf: conf,
		})
	}
	return frags
}
