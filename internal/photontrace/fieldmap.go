package photontrace

import (
	"bufio"
	"fmt"
	"os"
)

// grid3 is the shared flat-buffer bookkeeping for a fixed-size regular 3-D grid
// whose physical extent equals the medium. Indexing by cartesian coordinate divides
// by grid spacing and floors, clamping out-of-range queries to the nearest cell
// (spec Section 4.3) — the same shape as the teacher's Scene voxel buffer
// (cached bounds + inverse span + VoxelIndexOf), adapted from 4 to 3 axes.
type grid3 struct {
	nx, ny, nz int
	extentX    Real
	extentY    Real
	extentZ    Real
	dx, dy, dz Real
}

func newGrid3(nx, ny, nz int, extentX, extentY, extentZ Real) grid3 {
	return grid3{
		nx: nx, ny: ny, nz: nz,
		extentX: extentX, extentY: extentY, extentZ: extentZ,
		dx: extentX / Real(nx), dy: extentY / Real(ny), dz: extentZ / Real(nz),
	}
}

// cellOf floors (x/dx, y/dy, z/dz) and clamps to the valid index range.
func (g grid3) cellOf(x, y, z Real) (i, j, k int) {
	i = clampIndex(int(x/g.dx), g.nx)
	j = clampIndex(int(y/g.dy), g.ny)
	k = clampIndex(int(z/g.dz), g.nz)
	return
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// flatIndex maps a cell to its position in an x-fastest, then y, then z buffer.
func (g grid3) flatIndex(i, j, k int) int {
	return (k*g.ny+j)*g.nx + i
}

func (g grid3) size() int { return g.nx * g.ny * g.nz }

// PressureMap is a read-only 3-D scalar grid sampled at cartesian points. load_frame
// replaces its contents wholesale; the Driver is the only caller that ever does so,
// and only between acoustic time indices, never while walkers are reading it
// concurrently (spec Section 4.3/5).
type PressureMap struct {
	grid grid3
	buf  []Real
}

// NewPressureMap allocates an empty PressureMap with the given resolution and
// physical extent (equal to the medium's bounds).
func NewPressureMap(nx, ny, nz int, extentX, extentY, extentZ Real) *PressureMap {
	g := newGrid3(nx, ny, nz, extentX, extentY, extentZ)
	return &PressureMap{grid: g, buf: make([]Real, g.size())}
}

// LoadFrame replaces the map's contents with the frame stored at
// "<pathPrefix><timeIndex>.txt": Nx*Ny*Nz whitespace-separated doubles in
// x-fastest, then y, then z order (spec Section 4.3/6).
func (m *PressureMap) LoadFrame(pathPrefix string, timeIndex int) error {
	path := fmt.Sprintf("%s%d.txt", pathPrefix, timeIndex)
	buf, err := readScalarFrame(path, m.grid.size())
	if err != nil {
		return fmt.Errorf("pressure frame %s: %w", path, err)
	}
	m.buf = buf
	return nil
}

// SampleCart returns the pressure value at the grid cell containing (x,y,z).
func (m *PressureMap) SampleCart(x, y, z Real) Real {
	i, j, k := m.grid.cellOf(x, y, z)
	return m.buf[m.grid.flatIndex(i, j, k)]
}

// DisplacementMap is a read-only 3-D vector grid (spec Section 4.3), stored as
// three co-indexed scalar components.
type DisplacementMap struct {
	grid       grid3
	ux, uy, uz []Real
}

// NewDisplacementMap allocates an empty DisplacementMap with the given resolution
// and physical extent.
func NewDisplacementMap(nx, ny, nz int, extentX, extentY, extentZ Real) *DisplacementMap {
	g := newGrid3(nx, ny, nz, extentX, extentY, extentZ)
	n := g.size()
	return &DisplacementMap{grid: g, ux: make([]Real, n), uy: make([]Real, n), uz: make([]Real, n)}
}

// LoadFrame replaces the map's contents from three sibling frame files,
// "<pathPrefix>-x<timeIndex>.txt", "-y", "-z" (spec Section 6: displacement is
// "three files or three columns"; this implementation uses the three-file form).
func (m *DisplacementMap) LoadFrame(pathPrefix string, timeIndex int) error {
	n := m.grid.size()
	ux, err := readScalarFrame(fmt.Sprintf("%s-x%d.txt", pathPrefix, timeIndex), n)
	if err != nil {
		return fmt.Errorf("displacement frame (x): %w", err)
	}
	uy, err := readScalarFrame(fmt.Sprintf("%s-y%d.txt", pathPrefix, timeIndex), n)
	if err != nil {
		return fmt.Errorf("displacement frame (y): %w", err)
	}
	uz, err := readScalarFrame(fmt.Sprintf("%s-z%d.txt", pathPrefix, timeIndex), n)
	if err != nil {
		return fmt.Errorf("displacement frame (z): %w", err)
	}
	m.ux, m.uy, m.uz = ux, uy, uz
	return nil
}

// SampleCart returns the displacement vector at the grid cell containing (x,y,z).
func (m *DisplacementMap) SampleCart(x, y, z Real) Vector3 {
	i, j, k := m.grid.cellOf(x, y, z)
	idx := m.grid.flatIndex(i, j, k)
	return Vector3{m.ux[idx], m.uy[idx], m.uz[idx]}
}

// readScalarFrame reads exactly want whitespace-separated doubles from path.
// A missing file or a wrong-size frame is an I/O error per spec Section 7: the
// current acoustic time index fails and Run stops with that error.
func readScalarFrame(path string, want int) ([]Real, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]Real, 0, want)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		var v Real
		if _, err := fmt.Sscanf(sc.Text(), "%g", &v); err != nil {
			return nil, fmt.Errorf("parsing value %q: %w", sc.Text(), err)
		}
		buf = append(buf, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(buf) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(buf))
	}
	return buf, nil
}
