// Package config provides configuration loading and validation for tagstore.
//
// # Configuration File
//
// Configuration is read from YAML or, for files ending in .toml, TOML:
//
//	storage:
//	  path: /var/lib/tagstore/tags.db
//	  chunkSize: 4KiB
//	  initialSize: 1MB
//	  syncOnClose: true
//	  treeDegree: 8
//	  idCacheSize: 256
//
//	logging:
//	  level: info
//	  format: text
//	  output: stderr
//
// Sizes accept any unit understood by go-humanize ("64KB", "1 MiB").
//
// # Environment Variables
//
// ${VAR} and ${VAR:-default} are substituted before decoding:
//
//	storage:
//	  path: ${TAGSTORE_DB:-/var/lib/tagstore/tags.db}
//
// # Validation
//
// ValidateConfig returns every problem found as a ValidationError naming
// the offending field:
//
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    for _, err := range errs {
//	        log.Println(err)
//	    }
//	}
package config
