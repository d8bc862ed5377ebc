package models

// Role 用户角色枚举
type Role string

const (
	RoleBroker  Role = "BROKER"  // 经纪人
	RoleManager Role = "MANAGER" // 经理
	RoleAdmin   Role = "ADMIN"   // 管理员
)

// IsValid 判断角色是否合法
func (r Role) IsValid() bool {
	return r == RoleBroker || r == RoleManager || r == RoleAdmin
}

// Session 当前请求的登录上下文，由认证中间件创建并显式传入各业务操作
type Session struct {
	ActorID string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
}

// CanSeeAll 经理和管理员可以查看全部客户
func (s Session) CanSeeAll() bool {
	return s.Role == RoleManager || s.Role == RoleAdmin
}

// CanAccess 判断是否可以访问某个经纪人的客户
func (s Session) CanAccess(ownerID string) bool {
	return s.CanSeeAll() || (ownerID != "" && s.ActorID == ownerID)
}

// IsAdmin 是否管理员
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
