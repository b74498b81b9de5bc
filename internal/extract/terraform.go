package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/archlens/archlens/api/schemas"
)

var (
	tfResourceRe = regexp.MustCompile(`(?ms)resource\s+"([^"]+)"\s+"([^"]+)"\s*\{(.*?)\n\}`)
	tfRefRe      = regexp.MustCompile(`\$\{([^}]+)\}`)
	tfModuleRe   = regexp.MustCompile(`module\.([a-z0-9_-]+)`)
	tfResRefRe   = regexp.MustCompile(`(aws_|google_|azurerm_|null_)?([a-z_]+)\.([a-z_]+)`)
)

// tfKindMapping classifies known resource types; anything unknown falls
// back to infra_resource.
var tfKindMapping = map[string]schemas.NodeKind{
	"aws_instance":                 schemas.NodeInfraResource,
	"aws_ec2_instance":             schemas.NodeInfraResource,
	"aws_lambda_function":          schemas.NodeInfraResource,
	"aws_ecs_service":              schemas.NodeService,
	"aws_ecs_task_definition":      schemas.NodeContainer,
	"aws_db_instance":              schemas.NodeDatabase,
	"aws_rds_cluster":              schemas.NodeDatabase,
	"aws_dynamodb_table":           schemas.NodeDatabase,
	"aws_elasticsearch_domain":     schemas.NodeDatabase,
	"aws_redis_cluster":            schemas.NodeDatabase,
	"aws_s3_bucket":                schemas.NodeInfraResource,
	"aws_sqs_queue":                schemas.NodeQueue,
	"aws_sns_topic":                schemas.NodeQueue,
	"aws_mq_broker":                schemas.NodeQueue,
	"aws_kinesis_stream":           schemas.NodeQueue,
	"aws_kinesis_firehose_delivery_stream": schemas.NodeQueue,
	"aws_vpc":                      schemas.NodeInfraResource,
	"aws_subnet":                   schemas.NodeInfraResource,
	"aws_security_group":           schemas.NodeInfraResource,
	"aws_iam_role":                 schemas.NodeInfraResource,
	"aws_iam_policy":               schemas.NodeInfraResource,
	"aws_elb":                      schemas.NodeInfraResource,
	"aws_lb":                       schemas.NodeInfraResource,
	"aws_cloudwatch_log_group":     schemas.NodeInfraResource,
	"google_compute_instance":      schemas.NodeInfraResource,
	"google_cloud_sql_database_instance": schemas.NodeDatabase,
	"google_storage_bucket":        schemas.NodeInfraResource,
	"azurerm_virtual_machine":      schemas.NodeInfraResource,
	"azurerm_sql_database":         schemas.NodeDatabase,
	"azurerm_storage_account":      schemas.NodeInfraResource,
	"null_resource":                schemas.NodeInfraResource,
	"local_file":                   schemas.NodeInfraResource,
	"kubernetes_pod":               schemas.NodeContainer,
	"kubernetes_service":           schemas.NodeService,
	"kubernetes_deployment":        schemas.NodeService,
}

// tfScalarAttrs are block attributes copied into node metadata when present.
var tfScalarAttrs = []string{"ami", "instance_type", "engine", "bucket", "vpc_id"}

// TerraformExtractor scans .tf files with a block-level regex rather than a
// full HCL parse: resource declarations become nodes keyed
// "<type>.<name>", and ${...} interpolations plus module references become
// depends_on edges.
type TerraformExtractor struct {
	log *zap.Logger
}

func NewTerraformExtractor(logger *zap.Logger) *TerraformExtractor {
	return &TerraformExtractor{log: logger.Named("extract.terraform")}
}

func (e *TerraformExtractor) Name() string { return "terraform" }

func (e *TerraformExtractor) CanHandle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".tf")
}

func (e *TerraformExtractor) Extract(path string) ([]schemas.Node, []schemas.Edge) {
	raw, err := os.ReadFile(path)
	if err != nil {
		e.log.Debug("unreadable terraform file", zap.String("path", path), zap.Error(err))
		return nil, nil
	}

	var nodes []schemas.Node
	var edges []schemas.Edge

	for _, m := range tfResourceRe.FindAllStringSubmatch(string(raw), -1) {
		resourceType, resourceName, block := m[1], m[2], m[3]
		resourceID := resourceType + "." + resourceName

		kind, ok := tfKindMapping[resourceType]
		if !ok {
			kind = schemas.NodeInfraResource
		}

		metadata := map[string]any{
			"resource_type": resourceType,
			"resource_name": resourceName,
			"source":        path,
		}
		for _, attr := range tfScalarAttrs {
			if v := tfScalarAttr(block, attr); v != "" {
				metadata[attr] = v
			}
		}
		if m := regexp.MustCompile(`subnet_ids\s*=\s*\[(.*?)\]`).FindStringSubmatch(block); m != nil {
			metadata["subnet_ids"] = m[1]
		}

		nodes = append(nodes, schemas.Node{
			ID:       resourceID,
			Name:     resourceName,
			Kind:     kind,
			Metadata: metadata,
		})

		for _, dep := range tfDependencies(block) {
			edges = append(edges, schemas.Edge{
				Source:   resourceID,
				Target:   dep,
				Kind:     schemas.EdgeDependsOn,
				Metadata: map[string]any{"file": "terraform"},
			})
		}
	}
	return nodes, edges
}

func tfScalarAttr(block, attr string) string {
	re := regexp.MustCompile(attr + `\s*=\s*"([^"]+)"`)
	if m := re.FindStringSubmatch(block); m != nil {
		return m[1]
	}
	return ""
}

// tfDependencies pulls resource and module references out of a block body.
// The match is loose on purpose; unresolved targets are dropped later as
// dangling edges.
func tfDependencies(block string) []string {
	var deps []string
	for _, ref := range tfRefRe.FindAllStringSubmatch(block, -1) {
		// The provider prefix is part of the resource type, so it must stay
		// in the dependency key or the edge never resolves.
		if m := tfResRefRe.FindStringSubmatch(ref[1]); m != nil && m[2] != "" && m[3] != "" {
			deps = append(deps, m[1]+m[2]+"."+m[3])
		}
	}
	for _, m := range tfModuleRe.FindAllStringSubmatch(block, -1) {
		deps = append(deps, "module."+m[1])
	}
	return deps
}
