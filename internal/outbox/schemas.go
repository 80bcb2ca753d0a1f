package outbox

const activityChangedSchema = `{
  "type": "object",
  "title": "ActivityChanged",
  "properties": {
    "activity_id": {"type": "integer"},
    "name": {"type": "string"},
    "owner_id": {"type": ["integer", "null"]},
    "tag_ids": {"type": "array", "items": {"type": "integer"}},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "occurred_at"],
  "additionalProperties": false
}`

const participationChangedSchema = `{
  "type": "object",
  "title": "ParticipationChanged",
  "properties": {
    "activity_id": {"type": "integer"},
    "user_id": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["activity_id", "user_id", "occurred_at"],
  "additionalProperties": false
}`

const tagChangedSchema = `{
  "type": "object",
  "title": "TagChanged",
  "properties": {
    "tag_id": {"type": "integer"},
    "type": {"type": "string"},
    "name": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["tag_id", "occurred_at"],
  "additionalProperties": false
}`
