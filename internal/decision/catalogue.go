package decision

// Catalogue maps each decision type to its scenario descriptions.
type Catalogue map[Type][]string

// DefaultCatalogue is the stock scenario list, five entries per type.
var DefaultCatalogue = Catalogue{
	TypeInfrastructure: {
		"Scale server resources based on traffic predictions",
		"Implement auto-failover for database cluster",
		"Deploy edge computing nodes for latency optimization",
		"Optimize container orchestration configuration",
		"Implement predictive maintenance for hardware",
	},
	TypeDevelopment: {
		"Refactor critical path algorithms for performance",
		"Implement new API endpoints based on usage patterns",
		"Auto-generate test cases for new code modules",
		"Update framework dependencies with compatibility check",
		"Deploy feature flags for gradual rollout",
	},
	TypeOptimization: {
		"Optimize database queries using AI suggestions",
		"Implement intelligent caching strategies",
		"Compress and optimize static assets automatically",
		"Fine-tune machine learning model parameters",
		"Optimize network routing for better throughput",
	},
	TypeSecurity: {
		"Patch security vulnerabilities automatically",
		"Implement zero-trust network architecture",
		"Deploy advanced threat detection systems",
		"Rotate encryption keys based on schedule",
		"Update firewall rules based on threat intelligence",
	},
	TypeResource: {
		"Redistribute computational workload dynamically",
		"Clean up unused resources and optimize costs",
		"Implement intelligent resource reservation",
		"Balance network bandwidth allocation",
		"Optimize memory usage across microservices",
	},
	TypeStrategic: {
		"Plan system architecture evolution roadmap",
		"Implement new technology stack evaluation",
		"Design disaster recovery improvement plan",
		"Develop user experience enhancement strategy",
		"Create system scalability improvement plan",
	},
}

// Validate returns false if any type is missing or has no scenarios.
func (c Catalogue) Validate() bool {
	for _, t := range Types {
		if len(c[t]) == 0 {
			return false
		}
	}
	return true
}
