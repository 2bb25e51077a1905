package csv

import (
	"encoding/csv"
	"errors"
	"os"

	"github.com/thrasher-corp/backtester/data"
	"github.com/thrasher-corp/backtester/eventtypes/kline"
)

var (
	errNoFiles         = errors.New("no csv files found")
	errEmptyFile       = errors.New("csv file has no header")
	errDuplicateHeader = errors.New("duplicate csv header")
)

// Provider merges one or more csv files into a single bar stream ordered by
// timestamp then symbol. Rows keep their order within a file
type Provider struct {
	streams   []*fileStream
	heads     streamHeap
	batchSize int
	started   bool
}

// fileStream reads bars from one file. symbol is set when the file holds a
// single symbol named by its stem
type fileStream struct {
	index      int
	path       string
	file       *os.File
	reader     *csv.Reader
	columns    data.Columns
	dateFormat string
	filter     data.SymbolFilter
	symbol     string
	header     map[string]int
	line       int64
	head       *kline.Kline
	done       bool
}

type streamHeap []*fileStream
