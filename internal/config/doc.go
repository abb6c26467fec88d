// Package config loads the configuration of a Navigare client.
//
// The configuration lives in navigare.json (or navigare.yaml / navigare.yml)
// in the working directory or one of its parents.
//
// # Configuration File Structure
//
//	{
//	  "baseURL": "http://localhost:3000",
//	  "arrayFormat": "brackets",
//	  "timeout": "30s",
//	  "storage": {
//	    "driver": "bolt",
//	    "path": ".navigare/session.db"
//	  },
//	  "telemetry": {
//	    "namespace": "navigare",
//	    "metricsAddr": ":9090"
//	  },
//	  "bridge": {
//	    "addr": ":7070",
//	    "path": "/_navigare/ws"
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
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
//	fmt.Println("Server:", cfg.BaseURL)
package config
