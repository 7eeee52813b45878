// Package symbols maps addresses of an ELF executable to source lines and
// function names, and back, using its DWARF debug information.
package symbols

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/go-delve/tdb/pkg/logflags"
)

const (
	// DefaultEntryFunction is the function stack traces stop at and whose
	// compile unit bare line numbers refer to.
	DefaultEntryFunction = "main"
	// DefaultCacheSize is the number of address lookups remembered.
	DefaultCacheSize = 1024
)

var (
	// ErrNoSourceForPC is returned when an address is not covered by the
	// line table.
	ErrNoSourceForPC = errors.New("no source line for address")
	// ErrNoFunctionForPC is returned when an address is not inside any
	// function.
	ErrNoFunctionForPC = errors.New("no function for address")
	// ErrLineNotFound is returned when no code was generated for a line.
	ErrLineNotFound = errors.New("no code for line")
	// ErrFunctionNotFound is returned when no function has the given name.
	ErrFunctionNotFound = errors.New("function not found")
)

// DebugInfoError is returned by Open when the executable could be opened
// but its debug information could not be loaded.
type DebugInfoError struct {
	Path string
	Err  error
}

func (e *DebugInfoError) Error() string {
	return fmt.Sprintf("could not load debugging symbols from %s: %v", e.Path, e.Err)
}

func (e *DebugInfoError) Unwrap() error {
	return e.Err
}

// Options configures Open.
type Options struct {
	// EntryFunction defaults to DefaultEntryFunction.
	EntryFunction string
	// CacheSize defaults to DefaultCacheSize.
	CacheSize int
}

// Function describes a function in the target program.
type Function struct {
	Name       string
	Entry, End uint64 // same as DW_AT_lowpc and DW_AT_highpc
	cu         *compileUnit
}

type compileUnit struct {
	name  string // absolute path of the primary source file
	lines []lineRow
}

type lineRow struct {
	addr        uint64
	file        string
	line        int
	isStmt      bool
	prologueEnd bool
	endSeq      bool
}

type cachedLine struct {
	file string
	line int
}

// BinaryInfo holds information on the executable being debugged.
type BinaryInfo struct {
	// Path on disk of the binary being executed.
	Path string
	// Functions is a list of all DW_TAG_subprogram entries in debug_info, sorted by entry point
	Functions []Function

	entryFunction string
	compileUnits  []*compileUnit
	// entryUnit is the compile unit defining entryFunction, nil if there
	// is no such function.
	entryUnit *compileUnit
	// lines holds the rows of every line table, sorted by address.
	lines []lineRow

	closer  io.Closer
	pcCache *lru.Cache
	log     logflags.Logger
}

// Open loads the debug information of the executable at path.
func Open(path string, opts Options) (*BinaryInfo, error) {
	if opts.EntryFunction == "" {
		opts.EntryFunction = DefaultEntryFunction
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	elfFile, err := elf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	dw, err := elfFile.DWARF()
	if err != nil {
		elfFile.Close()
		return nil, &DebugInfoError{Path: path, Err: err}
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		elfFile.Close()
		return nil, err
	}
	bi := &BinaryInfo{
		Path:          path,
		entryFunction: opts.EntryFunction,
		closer:        elfFile,
		pcCache:       cache,
		log:           logflags.SymbolsLogger().WithField("path", path),
	}
	if err := bi.loadDebugInfo(dw); err != nil {
		elfFile.Close()
		return nil, &DebugInfoError{Path: path, Err: err}
	}
	return bi, nil
}

// Close releases the executable file.
func (bi *BinaryInfo) Close() error {
	return bi.closer.Close()
}

// EntryFunction returns the name of the function stack traces stop at.
func (bi *BinaryInfo) EntryFunction() string {
	return bi.entryFunction
}

func (bi *BinaryInfo) loadDebugInfo(dw *dwarf.Data) error {
	var cu *compileUnit
	rdr := dw.Reader()
	for {
		entry, err := rdr.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}
		switch entry.Tag {
		case dwarf.TagCompileUnit:
			cu, err = loadCompileUnit(dw, entry)
			if err != nil {
				return err
			}
			bi.compileUnits = append(bi.compileUnits, cu)
			bi.lines = append(bi.lines, cu.lines...)
		case dwarf.TagSubprogram:
			if fn, ok := readFunction(entry); ok {
				fn.cu = cu
				bi.Functions = append(bi.Functions, fn)
			}
			rdr.SkipChildren()
		default:
			if entry.Children {
				rdr.SkipChildren()
			}
		}
	}

	sort.Slice(bi.Functions, func(i, j int) bool { return bi.Functions[i].Entry < bi.Functions[j].Entry })
	sortLines(bi.lines)

	for i := range bi.Functions {
		if bi.Functions[i].Name == bi.entryFunction {
			bi.entryUnit = bi.Functions[i].cu
			break
		}
	}
	if bi.entryUnit == nil {
		bi.log.Warnf("entry function %s not found, line numbers will be searched in every compile unit", bi.entryFunction)
	}
	bi.log.Debugf("loaded %d functions and %d line table rows from %d compile units", len(bi.Functions), len(bi.lines), len(bi.compileUnits))
	return nil
}

func loadCompileUnit(dw *dwarf.Data, entry *dwarf.Entry) (*compileUnit, error) {
	cu := &compileUnit{}
	name, _ := entry.Val(dwarf.AttrName).(string)
	compDir, _ := entry.Val(dwarf.AttrCompDir).(string)
	if name != "" && !filepath.IsAbs(name) {
		name = filepath.Join(compDir, name)
	}
	cu.name = filepath.Clean(name)

	lr, err := dw.LineReader(entry)
	if err != nil {
		return nil, err
	}
	if lr == nil {
		return cu, nil
	}
	var le dwarf.LineEntry
	for {
		if err := lr.Next(&le); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		row := lineRow{
			addr:        le.Address,
			line:        le.Line,
			isStmt:      le.IsStmt,
			prologueEnd: le.PrologueEnd,
			endSeq:      le.EndSequence,
		}
		if le.File != nil {
			row.file = filepath.Clean(le.File.Name)
		}
		cu.lines = append(cu.lines, row)
	}
	return cu, nil
}

// readFunction returns the function described by a DW_TAG_subprogram
// entry, if it has code.
func readFunction(entry *dwarf.Entry) (Function, bool) {
	name, ok := entry.Val(dwarf.AttrName).(string)
	if !ok {
		return Function{}, false
	}
	lowpc, ok := entry.Val(dwarf.AttrLowpc).(uint64)
	if !ok {
		return Function{}, false
	}
	var highpc uint64
	field := entry.AttrField(dwarf.AttrHighpc)
	if field == nil {
		return Function{}, false
	}
	switch v := field.Val.(type) {
	case uint64:
		highpc = v
		if field.Class == dwarf.ClassConstant {
			highpc += lowpc
		}
	case int64:
		highpc = lowpc + uint64(v)
	default:
		return Function{}, false
	}
	return Function{Name: name, Entry: lowpc, End: highpc}, true
}

// sortLines sorts rows by address. A row ending a sequence sorts before
// any row starting a new one at the same address.
func sortLines(rows []lineRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].addr != rows[j].addr {
			return rows[i].addr < rows[j].addr
		}
		return rows[i].endSeq && !rows[j].endSeq
	})
}

// lookupLine returns the row covering pc.
func lookupLine(rows []lineRow, pc uint64) (lineRow, bool) {
	i := sort.Search(len(rows), func(i int) bool { return rows[i].addr > pc }) - 1
	if i < 0 || rows[i].endSeq {
		return lineRow{}, false
	}
	return rows[i], true
}

// PCToLine converts an instruction address to a file/line pair.
func (bi *BinaryInfo) PCToLine(pc uint64) (string, int, error) {
	if v, ok := bi.pcCache.Get(pc); ok {
		cl := v.(cachedLine)
		return cl.file, cl.line, nil
	}
	row, ok := lookupLine(bi.lines, pc)
	if !ok {
		return "", 0, errors.Wrapf(ErrNoSourceForPC, "%#x", pc)
	}
	bi.pcCache.Add(pc, cachedLine{file: row.file, line: row.line})
	return row.file, row.line, nil
}

// PCToFunc returns the name of the function containing the given PC
// address.
func (bi *BinaryInfo) PCToFunc(pc uint64) (string, error) {
	fn := bi.funcAt(pc)
	if fn == nil {
		return "", errors.Wrapf(ErrNoFunctionForPC, "%#x", pc)
	}
	return fn.Name, nil
}

func (bi *BinaryInfo) funcAt(pc uint64) *Function {
	i := sort.Search(len(bi.Functions), func(i int) bool {
		fn := bi.Functions[i]
		return pc <= fn.Entry || (fn.Entry <= pc && pc < fn.End)
	})
	if i != len(bi.Functions) {
		fn := &bi.Functions[i]
		if fn.Entry <= pc && pc < fn.End {
			return fn
		}
	}
	return nil
}

// LineToPC returns the lowest address of a statement on the given line of
// the source file that defines the entry function.
func (bi *BinaryInfo) LineToPC(lineno int) (uint64, error) {
	units := bi.compileUnits
	if bi.entryUnit != nil {
		units = []*compileUnit{bi.entryUnit}
	}
	found := false
	var pc uint64
	for _, cu := range units {
		for _, row := range cu.primaryLines() {
			if row.line != lineno || !row.isStmt || row.endSeq {
				continue
			}
			if !found || row.addr < pc {
				pc = row.addr
				found = true
			}
		}
	}
	if !found {
		return 0, errors.Wrapf(ErrLineNotFound, "line %d", lineno)
	}
	return pc, nil
}

// primaryLines returns the rows of cu belonging to its primary source
// file, or all of them if none can be matched to it.
func (cu *compileUnit) primaryLines() []lineRow {
	r := make([]lineRow, 0, len(cu.lines))
	for _, row := range cu.lines {
		if row.file == cu.name {
			r = append(r, row)
		}
	}
	if len(r) == 0 {
		return cu.lines
	}
	return r
}

// FuncToPC returns the address of the first instruction after the
// prologue of the named function. Functions of the compile unit defining
// the entry function take precedence over homonyms in other units.
func (bi *BinaryInfo) FuncToPC(name string) (uint64, error) {
	var fn *Function
	for i := range bi.Functions {
		if bi.Functions[i].Name != name {
			continue
		}
		if fn == nil || (bi.entryUnit != nil && bi.Functions[i].cu == bi.entryUnit) {
			fn = &bi.Functions[i]
		}
	}
	if fn == nil {
		return 0, errors.Wrapf(ErrFunctionNotFound, "%s", name)
	}
	return bi.firstPCAfterPrologue(fn), nil
}

// firstPCAfterPrologue returns the address marked as the end of the
// prologue of fn or, failing that, the second statement of fn.
func (bi *BinaryInfo) firstPCAfterPrologue(fn *Function) uint64 {
	i := sort.Search(len(bi.lines), func(i int) bool { return bi.lines[i].addr >= fn.Entry })
	var next uint64
	for ; i < len(bi.lines) && bi.lines[i].addr < fn.End; i++ {
		row := bi.lines[i]
		if row.endSeq {
			continue
		}
		if row.prologueEnd {
			return row.addr
		}
		if next == 0 && row.addr > fn.Entry && row.isStmt {
			next = row.addr
		}
	}
	if next != 0 {
		return next
	}
	return fn.Entry
}
