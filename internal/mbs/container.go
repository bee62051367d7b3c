package mbs

import "github.com/limashader/malisc/internal/symbols"

// CoreVariant selects which Mali core a compiled shader targets; it changes
// the version codes embedded in CVER/CFRA and a handful of intrinsic
// lowerings upstream of this package (spec.md §6.3).
type CoreVariant int

const (
	CoreMali200 CoreVariant = iota
	CoreMali400
)

// VertexInfo carries the fields export_cver/export_fins need that this
// package has no other way to derive: the instruction count and prefetch
// width a vertex shader's machine code was compiled with.
type VertexInfo struct {
	NumInstructions uint32
	AttribPrefetch  uint32
}

// FragmentInfo carries the fields export_cfra/export_fsta/export_fdis/
// export_fbuu need: PP stack sizing and the render-target read/write bits
// a fragment shader's machine code was compiled with.
type FragmentInfo struct {
	StackSize     uint32
	StackOffset   uint32
	HasDiscard    bool
	ReadsColor    bool
	WritesColor   bool
	ReadsDepth    bool
	WritesDepth   bool
	ReadsStencil  bool
	WritesStencil bool
}

// ExportVertex builds the MBS1 root chunk for a compiled vertex shader
// (lima_shader_export_offline → export_cver).
func ExportVertex(core CoreVariant, info VertexInfo, syms *symbols.ShaderSymbols, code []byte) *Chunk {
	root := NewChunk("MBS1")
	cver := NewChunk("CVER")

	version := uint32(2)
	if core == CoreMali400 {
		version = 6
	}
	cver.AppendUint32(version)

	fins := NewChunk("FINS")
	fins.AppendUint32(0)
	fins.AppendUint32(info.NumInstructions)
	fins.AppendUint32(info.AttribPrefetch)
	cver.Append(fins)

	cver.Append(ExportUniformTable(&syms.UniformTable))
	cver.Append(ExportAttributeTable(&syms.AttributeTable))
	cver.Append(ExportVaryingTable(&syms.VaryingTable))

	dbin := NewChunk("DBIN")
	dbin.AppendData(code)
	cver.Append(dbin)

	root.Append(cver)
	return root
}

func bit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// ExportFragment builds the MBS1 root chunk for a compiled fragment shader
// (lima_shader_export_offline → export_cfra).
func ExportFragment(core CoreVariant, info FragmentInfo, syms *symbols.ShaderSymbols, code []byte) *Chunk {
	root := NewChunk("MBS1")
	cfra := NewChunk("CFRA")

	version := uint32(5)
	if core == CoreMali400 {
		version = 7
	}
	cfra.AppendUint32(version)

	fsta := NewChunk("FSTA")
	fsta.AppendUint32(info.StackSize)
	fsta.AppendUint32(info.StackOffset)
	cfra.Append(fsta)

	fdis := NewChunk("FDIS")
	fdis.AppendUint32(uint32(bit(info.HasDiscard)))
	cfra.Append(fdis)

	fbuu := NewChunk("FBUU")
	fbuu.AppendData([]byte{
		bit(info.ReadsColor), bit(info.WritesColor),
		bit(info.ReadsDepth), bit(info.WritesDepth),
		bit(info.ReadsStencil), bit(info.WritesStencil),
		0, 0,
	})
	cfra.Append(fbuu)

	cfra.Append(ExportUniformTable(&syms.UniformTable))
	cfra.Append(ExportVaryingTable(&syms.VaryingTable))

	dbin := NewChunk("DBIN")
	dbin.AppendData(code)
	cfra.Append(dbin)

	root.Append(cfra)
	return root
}
