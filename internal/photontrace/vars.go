package photontrace

var (
	// Debug enables verbose debug logging when the debug build tag is set.
	Debug = false
)

// Compile time checks that both absorber shapes satisfy absorberShape.
var (
	_ absorberShape = (*sphereAbsorber)(nil)
	_ absorberShape = (*cylinderAbsorber)(nil)
)
