package output

// SchemaVersion is written into every JSON report as "version".
const SchemaVersion = "1.1.0"

// Schema is the JSON Schema (Draft 2020-12) of the cyclomatic JSON report
// produced for AnalysisView.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/panbanda/spaces/cyclomatic-report.schema.json",
  "title": "Spaces Cyclomatic Report",
  "description": "Output schema for spaces cyclomatic --format=json",
  "type": "object",
  "required": ["version", "files", "summary", "violations"],
  "properties": {
    "version": {
      "type": "string",
      "description": "Schema version (semver)"
    },
    "files": {
      "type": "array",
      "items": { "$ref": "#/$defs/File" }
    },
    "summary": { "$ref": "#/$defs/ProjectSummary" },
    "violations": {
      "type": "array",
      "items": { "$ref": "#/$defs/Violation" }
    },
    "errors": {
      "type": "array",
      "items": { "$ref": "#/$defs/FileError" }
    }
  },
  "$defs": {
    "Record": {
      "type": "object",
      "description": "Cyclomatic statistic of a set of spaces",
      "required": ["sum", "average", "min", "max"],
      "additionalProperties": false,
      "properties": {
        "sum": { "type": "number", "minimum": 0 },
        "average": { "type": "number", "minimum": 0 },
        "min": { "type": "number", "minimum": 0 },
        "max": { "type": "number", "minimum": 0 }
      }
    },
    "Kind": {
      "type": "string",
      "enum": ["unit", "function", "class", "struct", "trait", "impl", "interface", "namespace", "closure"]
    },
    "Space": {
      "type": "object",
      "required": ["kind", "start_line", "end_line", "complexity", "cyclomatic"],
      "properties": {
        "name": { "type": "string" },
        "kind": { "$ref": "#/$defs/Kind" },
        "start_line": { "type": "integer", "minimum": 0 },
        "end_line": { "type": "integer", "minimum": 0 },
        "complexity": {
          "type": "number",
          "minimum": 1,
          "description": "Local complexity, excluding nested spaces"
        },
        "cyclomatic": { "$ref": "#/$defs/Record" },
        "spaces": {
          "type": "array",
          "items": { "$ref": "#/$defs/Space" }
        }
      }
    },
    "Function": {
      "type": "object",
      "required": ["name", "kind", "file", "start_line", "end_line", "complexity", "cyclomatic"],
      "properties": {
        "name": { "type": "string", "description": "Dotted path of enclosing space names" },
        "kind": { "type": "string", "enum": ["function", "closure"] },
        "file": { "type": "string" },
        "start_line": { "type": "integer", "minimum": 0 },
        "end_line": { "type": "integer", "minimum": 0 },
        "complexity": { "type": "number", "minimum": 1 },
        "cyclomatic": { "$ref": "#/$defs/Record" }
      }
    },
    "File": {
      "type": "object",
      "required": ["path", "language", "cyclomatic", "max_depth", "types", "functions"],
      "properties": {
        "path": { "type": "string" },
        "language": { "type": "string" },
        "cyclomatic": { "$ref": "#/$defs/Record" },
        "max_depth": {
          "type": "integer",
          "minimum": 1,
          "description": "Deepest space nesting, the unit counting as 1"
        },
        "types": {
          "type": "integer",
          "minimum": 0,
          "description": "Class, struct, trait, impl, interface and namespace spaces"
        },
        "spaces": { "$ref": "#/$defs/Space" },
        "functions": {
          "type": "array",
          "items": { "$ref": "#/$defs/Function" }
        }
      }
    },
    "Distribution": {
      "type": "object",
      "required": ["count", "mean", "std_dev", "p50", "p90", "p95", "max"],
      "properties": {
        "count": { "type": "integer", "minimum": 0 },
        "mean": { "type": "number" },
        "std_dev": { "type": "number" },
        "p50": { "type": "number" },
        "p90": { "type": "number" },
        "p95": { "type": "number" },
        "max": { "type": "number" }
      }
    },
    "ProjectSummary": {
      "type": "object",
      "required": ["total_files", "total_spaces", "total_functions", "total_types", "max_depth", "cyclomatic", "functions", "violation_count"],
      "properties": {
        "total_files": { "type": "integer", "minimum": 0 },
        "total_spaces": { "type": "integer", "minimum": 0 },
        "total_functions": { "type": "integer", "minimum": 0 },
        "total_types": { "type": "integer", "minimum": 0 },
        "max_depth": { "type": "integer", "minimum": 0 },
        "cyclomatic": { "$ref": "#/$defs/Record" },
        "functions": { "$ref": "#/$defs/Distribution" },
        "violation_count": { "type": "integer", "minimum": 0 }
      }
    },
    "Violation": {
      "type": "object",
      "required": ["severity", "rule", "message", "value", "threshold", "file", "line"],
      "properties": {
        "severity": { "type": "string", "enum": ["warning", "error"] },
        "rule": { "type": "string", "enum": ["cyclomatic", "cyclomatic-average"] },
        "message": { "type": "string" },
        "value": { "type": "number" },
        "threshold": { "type": "number" },
        "file": { "type": "string" },
        "line": { "type": "integer", "minimum": 0 },
        "function": { "type": "string" }
      }
    },
    "FileError": {
      "type": "object",
      "required": ["path", "error"],
      "properties": {
        "path": { "type": "string" },
        "error": { "type": "string" }
      }
    }
  }
}`
