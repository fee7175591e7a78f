package registry

// defaultCatalog is the built-in node-type palette. Deployments override
// it with their own catalog document
const defaultCatalog = `{
  "node_types": [
    {
      "type": "trigger",
      "label": "Trigger",
      "icon": "bolt",
      "default_data": {"label": "Trigger", "triggerType": "manual"},
      "config_schema": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "triggerType": {
            "type": "string",
            "enum": ["manual", "webhook", "schedule"]
          },
          "schedule": {"type": "string"}
        },
        "required": ["triggerType"]
      }
    },
    {
      "type": "action",
      "label": "Action",
      "icon": "play",
      "default_data": {"label": "Action"},
      "config_schema": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "operation": {"type": "string"},
          "parameters": {"type": "object"}
        }
      }
    },
    {
      "type": "condition",
      "label": "Condition",
      "icon": "git-branch",
      "default_data": {"label": "Condition", "expression": ""},
      "config_schema": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "expression": {"type": "string"}
        },
        "required": ["expression"]
      }
    },
    {
      "type": "loop",
      "label": "Loop",
      "icon": "repeat",
      "default_data": {"label": "Loop", "collection": ""}
    },
    {
      "type": "wait",
      "label": "Wait",
      "icon": "clock",
      "default_data": {"label": "Wait", "durationMs": 1000},
      "config_schema": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "durationMs": {"type": "integer", "minimum": 0}
        },
        "required": ["durationMs"]
      }
    },
    {
      "type": "output",
      "label": "Output",
      "icon": "log-out",
      "default_data": {"label": "Output"}
    },
    {
      "type": "externalService",
      "label": "Service Call",
      "icon": "globe",
      "default_data": {"label": "Service Call", "service": ""},
      "config_schema": {
        "type": "object",
        "properties": {
          "label": {"type": "string"},
          "service": {"type": "string"},
          "endpoint": {"type": "string"},
          "method": {
            "type": "string",
            "enum": ["GET", "POST", "PUT", "DELETE"]
          }
        },
        "required": ["service"]
      }
    },
    {
      "type": "custom",
      "label": "Custom",
      "icon": "puzzle",
      "default_data": {"label": "Custom"}
    }
  ]
}`

// defaultServices lists the external endpoints service-call nodes can
// target out of the box
const defaultServices = `{
  "services": [
    {
      "name": "ai-gateway",
      "base_url": "http://localhost:8081",
      "description": "LLM completion and embedding gateway",
      "auth_kind": "bearer"
    },
    {
      "name": "webhook-relay",
      "base_url": "http://localhost:8082",
      "description": "Outbound webhook delivery",
      "auth_kind": "none"
    }
  ]
}`
