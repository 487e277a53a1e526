package common

// PackageName identifies this module in metrics namespaces and logs.
const PackageName = "tee-assertion-generator"

// Version is set during the build process via ldflags.
var Version = "dev"
