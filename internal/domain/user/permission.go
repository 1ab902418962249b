package user

type Permission string

const (
	PermissionPayrollView     Permission = "payroll.view"
	PermissionPayrollGenerate Permission = "payroll.generate"
	PermissionPayrollApprove  Permission = "payroll.approve"
	PermissionPayrollPay      Permission = "payroll.pay"
	PermissionPayrollLock     Permission = "payroll.lock"
	PermissionPayrollUnlock   Permission = "payroll.unlock"
	PermissionPayrollExport   Permission = "payroll.export"

	PermissionSalaryView   Permission = "salary.view"
	PermissionSalaryManage Permission = "salary.manage"

	PermissionAuditView Permission = "audit.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionPayrollApprove,
		PermissionPayrollPay,
		PermissionPayrollLock,
		PermissionPayrollUnlock,
		PermissionPayrollExport,
		PermissionSalaryView,
		PermissionSalaryManage,
		PermissionAuditView,
	},
	RoleHRAdmin: {
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionPayrollExport,
		PermissionSalaryView,
		PermissionSalaryManage,
		PermissionAuditView,
	},
	RolePayrollManager: {
		PermissionPayrollView,
		PermissionPayrollGenerate,
		PermissionPayrollApprove,
		PermissionPayrollExport,
		PermissionSalaryView,
		PermissionAuditView,
	},
	RoleFinanceAdmin: {
		// Unlock is the elevated permission
		PermissionPayrollView,
		PermissionPayrollPay,
		PermissionPayrollLock,
		PermissionPayrollUnlock,
		PermissionPayrollExport,
		PermissionAuditView,
	},
	RoleSystem: {
		PermissionPayrollView,
		PermissionPayrollGenerate,
	},
	RoleEmployee: {
		// Employees read their payslips through the self-service module
	},
}
