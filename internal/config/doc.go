// Package config provides configuration parsing for kiln projects.
//
// The configuration is stored in kiln.json at the project root.
// This package handles loading, saving, and validating configuration,
// plus the dotenv files whose values are handed to page analysis.
//
// # Configuration File Structure
//
//	{
//	  "paths": {
//	    "pages": "pages",
//	    "public": "public"
//	  },
//	  "build": {
//	    "dist": ".kiln",
//	    "target": "server",
//	    "workers": 0,
//	    "minify": true
//	  },
//	  "routes": {
//	    "redirects": [
//	      { "source": "/old-blog/[slug]", "destination": "/blog/[slug]", "permanent": true }
//	    ],
//	    "rewrites": [
//	      { "source": "/docs/[page]", "destination": "/guides/[page]" }
//	    ],
//	    "headers": [
//	      { "source": "/fonts/[name]", "headers": [{ "key": "Cache-Control", "value": "immutable" }] }
//	    ]
//	  },
//	  "preview": {
//	    "port": 3000,
//	    "host": "localhost"
//	  },
//	  "offload": {
//	    "provider": "s3",
//	    "bucket": "my-site-assets",
//	    "region": "us-east-1"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Pages:", cfg.PagesPath())
package config
