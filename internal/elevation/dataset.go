package elevation

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/edsrzf/mmap-go"
	"go.uber.org/zap"

	"github.com/FreemapSlovakia/freemap-outdoor-map/internal/logger"
)

// NoData marks a missing sample in an HGT file
const NoData = -32768

// Dataset is a single memory-mapped 1°x1° HGT elevation tile.
// Samples are big-endian int16, row-major from the northwest corner.
type Dataset struct {
	data mmap.MMap
	file *os.File
	side int // samples per side: 3601 (SRTM1) or 1201 (SRTM3)
	lat0 int // southwest corner
	lon0 int
}

// openDataset maps an HGT file covering the cell (lat0, lon0)
func openDataset(path string, lat0, lon0 int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	side := int(math.Sqrt(float64(info.Size() / 2)))
	if int64(side)*int64(side)*2 != info.Size() {
		f.Close()
		return nil, fmt.Errorf("unexpected HGT file size %d", info.Size())
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}

	return &Dataset{data: data, file: f, side: side, lat0: lat0, lon0: lon0}, nil
}

// Close unmaps the dataset
func (d *Dataset) Close() error {
	if err := d.data.Unmap(); err != nil {
		return err
	}
	return d.file.Close()
}

// raw returns the sample at integer grid position, row 0 at the north edge
func (d *Dataset) raw(row, col int) int16 {
	i := (row*d.side + col) * 2
	return int16(uint16(d.data[i])<<8 | uint16(d.data[i+1]))
}

// Sample returns the bilinearly interpolated elevation at (lat, lon),
// or ok=false when the point has no data
func (d *Dataset) Sample(lat, lon float64) (float64, bool) {
	fy := (float64(d.lat0+1) - lat) * float64(d.side-1)
	fx := (lon - float64(d.lon0)) * float64(d.side-1)

	row := int(fy)
	col := int(fx)
	if row < 0 || col < 0 || row >= d.side-1 || col >= d.side-1 {
		return 0, false
	}

	v00 := d.raw(row, col)
	v01 := d.raw(row, col+1)
	v10 := d.raw(row+1, col)
	v11 := d.raw(row+1, col+1)
	if v00 == NoData || v01 == NoData || v10 == NoData || v11 == NoData {
		return 0, false
	}

	ty := fy - float64(row)
	tx := fx - float64(col)
	top := float64(v00)*(1-tx) + float64(v01)*tx
	bot := float64(v10)*(1-tx) + float64(v11)*tx
	return top*(1-ty) + bot*ty, true
}

// Datasets lazily opens HGT tiles from a directory, keyed by their
// 1° cell. Missing files mean missing coverage, not an error.
type Datasets struct {
	dir string
	log *zap.Logger

	mu    sync.Mutex
	cells map[[2]int]*Dataset // nil entry = known missing
}

// OpenDatasets creates a dataset store over a directory of .hgt files
func OpenDatasets(dir string) *Datasets {
	return &Datasets{
		dir:   dir,
		log:   logger.Named("elevation"),
		cells: make(map[[2]int]*Dataset),
	}
}

// Close unmaps all open datasets
func (s *Datasets) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.cells {
		if d != nil {
			d.Close()
		}
	}
	s.cells = make(map[[2]int]*Dataset)
}

// Sample returns the elevation at (lat, lon), ok=false outside coverage
func (s *Datasets) Sample(lat, lon float64) (float64, bool) {
	lat0 := int(math.Floor(lat))
	lon0 := int(math.Floor(lon))

	d := s.cell(lat0, lon0)
	if d == nil {
		return 0, false
	}
	return d.Sample(lat, lon)
}

func (s *Datasets) cell(lat0, lon0 int) *Dataset {
	key := [2]int{lat0, lon0}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.cells[key]; ok {
		return d
	}

	path := filepath.Join(s.dir, cellName(lat0, lon0)+".hgt")
	d, err := openDataset(path, lat0, lon0)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to open elevation tile", zap.String("path", path), zap.Error(err))
		}
		s.cells[key] = nil
		return nil
	}

	s.log.Info("mapped elevation tile", zap.String("path", path), zap.Int("side", d.side))
	s.cells[key] = d
	return d
}

// cellName returns the SRTM naming for a cell, e.g. N48E017
func cellName(lat0, lon0 int) string {
	ns, ew := 'N', 'E'
	if lat0 < 0 {
		ns = 'S'
		lat0 = -lat0
	}
	if lon0 < 0 {
		ew = 'W'
		lon0 = -lon0
	}
	return fmt.Sprintf("%c%02d%c%03d", ns, lat0, ew, lon0)
}
