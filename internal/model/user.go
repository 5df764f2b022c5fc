package model

// UserRole 用户身份由外部认证服务签发，这里只保留角色
type UserRole string

const (
	Admin        UserRole = "admin"
	Editor       UserRole = "editor"
	NodeOperator UserRole = "node_operator"
	Translator   UserRole = "translator"
	Reviewer     UserRole = "reviewer"
	Learner      UserRole = "learner"
)
