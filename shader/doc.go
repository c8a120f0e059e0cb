// Package shader prepares WGSL programs for compilation.
//
// A [Preprocessor] expands #include directives against an explicitly
// initialized [Registry] of shared chunks, evaluates #ifdef / #ifndef /
// #else / #endif blocks and substitutes object-like defines. A [Compiler]
// turns the result into SPIR-V; [NagaCompiler] uses github.com/gogpu/naga.
//
//	reg := shader.NewRegistry().Init()
//	pp := shader.NewPreprocessor(reg)
//	src, err := pp.Process(source, map[string]string{"DEPTH": ""})
package shader
