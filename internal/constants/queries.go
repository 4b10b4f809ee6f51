package constants

const (
	InsertActionLog = `
	INSERT INTO action_logs (user_id, action, target_id, outcome, detail, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	ListRecentActionLogs = `
	SELECT id, user_id, action, target_id, outcome, detail, created_at
	FROM action_logs
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`

	ListActionLogsByUser = `
	SELECT id, user_id, action, target_id, outcome, detail, created_at
	FROM action_logs
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?
	`
)
