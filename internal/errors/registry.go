package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryRouting,
		Message:  "Page conflicts with a public file",
		Detail:   "A file under the public directory resolves to the same URL as a page. The runtime cannot serve both; every conflicting path is listed below.",
		DocURL:   "https://kiln.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryRouting,
		Message:  "Invalid dynamic route pattern",
		Detail:   "Dynamic segments use the [param] syntax. Brackets must be balanced and parameter names must be non-empty.",
		DocURL:   "https://kiln.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryRouting,
		Message:  "Route rule source does not compile",
		Detail:   "The source pattern of a redirect, rewrite or header rule could not be compiled to a matcher.",
		DocURL:   "https://kiln.dev/docs/errors/E102",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid kiln.json",
		Detail:   "The configuration file could not be read or parsed.",
		DocURL:   "https://kiln.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid route rule",
		Detail:   "A redirect, rewrite or header rule in kiln.json is missing a required field or uses an unsupported combination.",
		DocURL:   "https://kiln.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "Ports must be between 0 and 65535.",
		DocURL:   "https://kiln.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Build output directory is not writable",
		Detail:   "kiln needs write access to the output directory to persist bundles and manifests.",
		DocURL:   "https://kiln.dev/docs/errors/E123",
	},
	"E124": {
		Category: CategoryConfig,
		Message:  "Invalid worker count",
		Detail:   "build.workers must be zero (auto) or a positive integer.",
		DocURL:   "https://kiln.dev/docs/errors/E124",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E141": {
		Category: CategoryCLI,
		Message:  "No kiln.json found",
		Detail:   "kiln commands must run inside a project containing a kiln.json file.",
		DocURL:   "https://kiln.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Build failed",
		Detail:   "The production build did not complete. See the wrapped error for the failing stage.",
		DocURL:   "https://kiln.dev/docs/errors/E142",
	},
	"E143": {
		Category: CategoryCLI,
		Message:  "Preview server failed",
		Detail:   "The preview server could not be started on the configured address.",
		DocURL:   "https://kiln.dev/docs/errors/E143",
	},
	"E144": {
		Category: CategoryCLI,
		Message:  "No build output to serve",
		Detail:   "Run 'kiln build' first; the preview and offload commands operate on an existing build output directory.",
		DocURL:   "https://kiln.dev/docs/errors/E144",
	},
	"E145": {
		Category: CategoryCLI,
		Message:  "Pages directory not found",
		Detail:   "kiln builds the files under the pages directory; the configured path does not exist.",
		DocURL:   "https://kiln.dev/docs/errors/E145",
	},

	// ============================================
	// Compile Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryCompile,
		Message:  "Client compilation failed",
		Detail:   "The bundler reported errors while compiling the client bundles.",
		DocURL:   "https://kiln.dev/docs/errors/E160",
	},
	"E161": {
		Category: CategoryCompile,
		Message:  "Server compilation failed",
		Detail:   "The bundler reported errors while compiling the server bundles.",
		DocURL:   "https://kiln.dev/docs/errors/E161",
	},
	"E162": {
		Category: CategoryCompile,
		Message:  "Page is missing a default export",
		Detail:   "Every page module must export a component as its default export.",
		DocURL:   "https://kiln.dev/docs/errors/E162",
	},
	"E163": {
		Category: CategoryCompile,
		Message:  "Reserved page alias overridden",
		Detail:   "The bundler configuration overrides the reserved pages alias. kiln resolves page modules through this alias; overriding it breaks the build.",
		DocURL:   "https://kiln.dev/docs/errors/E163",
	},
	"E164": {
		Category: CategoryCompile,
		Message:  "Compiled page bundle missing",
		Detail:   "The bundler reported success but a page's server bundle is not present in the output directory.",
		DocURL:   "https://kiln.dev/docs/errors/E164",
	},

	// ============================================
	// Analysis Errors (E200-E219)
	// ============================================

	"E200": {
		Category: CategoryAnalysis,
		Message:  "Page analysis failed",
		Detail:   "A page bundle could not be analyzed. This is not a classification outcome; the worker reported an unexpected failure.",
		DocURL:   "https://kiln.dev/docs/errors/E200",
	},
	"E201": {
		Category: CategoryAnalysis,
		Message:  "Pages without a valid component export",
		Detail:   "The listed page bundles do not export a renderable component. Each page must default-export a component.",
		DocURL:   "https://kiln.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryAnalysis,
		Message:  "Analysis pool is closed",
		Detail:   "A task was submitted after the worker pool was shut down.",
		DocURL:   "https://kiln.dev/docs/errors/E202",
	},
	"E213": {
		Category: CategoryAnalysis,
		Message:  "Custom /404 page must be statically renderable",
		Detail:   "The custom 404 page uses server-side data fetching. Error pages are served without a request-time compute path, so /404 must be static or use build-time data fetching.",
		DocURL:   "https://kiln.dev/docs/errors/E213",
	},

	// ============================================
	// Export Errors (E220-E239)
	// ============================================

	"E220": {
		Category: CategoryExport,
		Message:  "Static export failed",
		Detail:   "The export pass could not materialize one or more pages to HTML.",
		DocURL:   "https://kiln.dev/docs/errors/E220",
	},
	"E221": {
		Category: CategoryExport,
		Message:  "Export scratch directory cleanup failed",
		Detail:   "The temporary export directory could not be removed.",
		DocURL:   "https://kiln.dev/docs/errors/E221",
	},
	"E222": {
		Category: CategoryExport,
		Message:  "Failed to relocate exported file",
		Detail:   "An exported file could not be moved into the server output layout.",
		DocURL:   "https://kiln.dev/docs/errors/E222",
	},
	"E223": {
		Category: CategoryExport,
		Message:  "Exported file missing",
		Detail:   "A file the export pass should have produced does not exist. The build output is inconsistent and cannot be trusted.",
		DocURL:   "https://kiln.dev/docs/errors/E223",
	},

	// ============================================
	// Manifest Errors (E240-E259)
	// ============================================

	"E240": {
		Category: CategoryManifest,
		Message:  "Failed to write manifest",
		Detail:   "A build manifest could not be persisted to the output directory.",
		DocURL:   "https://kiln.dev/docs/errors/E240",
	},
	"E241": {
		Category: CategoryManifest,
		Message:  "Prerender manifest integrity violation",
		Detail:   "A prerendered route references a source route that is not present in the dynamic route table.",
		DocURL:   "https://kiln.dev/docs/errors/E241",
	},

	// ============================================
	// Offload Errors (E260-E279)
	// ============================================

	"E260": {
		Category: CategoryOffload,
		Message:  "Asset upload failed",
		Detail:   "One or more files could not be uploaded to the configured object store.",
		DocURL:   "https://kiln.dev/docs/errors/E260",
	},
	"E261": {
		Category: CategoryOffload,
		Message:  "Unknown offload provider",
		Detail:   "offload.provider must be one of: s3, minio.",
		DocURL:   "https://kiln.dev/docs/errors/E261",
	},
	"E262": {
		Category: CategoryOffload,
		Message:  "Offload source directory missing",
		Detail:   "The directory selected for offloading does not exist in the build output.",
		DocURL:   "https://kiln.dev/docs/errors/E262",
	},
	"E263": {
		Category: CategoryOffload,
		Message:  "Offload bucket not configured",
		Detail:   "Uploading requires a destination bucket.",
		DocURL:   "https://kiln.dev/docs/errors/E263",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	template, ok := registry[code]
	return template, ok
}

// Register adds a custom error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
