package docgen

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// excludedFolders are never descended into.
var excludedFolders = map[string]bool{
	"node_modules": true, "venv": true, ".venv": true, "env": true, ".env": true,
	".git": true, ".idea": true, ".vscode": true, "__pycache__": true,
	"dist": true, "build": true, ".next": true, "out": true, ".parcel-cache": true,
	"coverage": true, "logs": true, "tmp": true, "temp": true,
	// ML tooling output
	"mlruns": true, ".dvc": true, "wandb": true, ".mlflow": true, ".mlem": true,
	"checkpoints": true, "runs": true, "lightning_logs": true, ".ipynb_checkpoints": true,
}

// excludedFiles lists manifests, lockfiles, tool configuration and project
// metadata that never carry application source. Entries containing a slash
// match the path relative to the project root.
var excludedFiles = map[string]bool{
	// JavaScript tooling
	"package.json": true, "package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"bun.lockb": true, "vite.config.ts": true, "vite.config.js": true, "webpack.config.js": true,
	"rollup.config.js": true, "esbuild.config.js": true, "snowpack.config.js": true,
	"metro.config.js": true, "vite-env.d.ts": true, "tsconfig.json": true,
	"tsconfig.app.json": true, "tsconfig.node.json": true, "tsconfig.base.json": true,
	"tslint.json": true, "eslint.config.js": true, ".eslintrc.js": true, ".eslintrc.json": true,
	".prettierrc": true, ".prettierrc.js": true, ".prettierrc.json": true, ".stylelintrc": true,
	".stylelintrc.json": true, "stylelint.config.js": true, "tailwind.config.js": true,
	"postcss.config.js": true, "babel.config.js": true, ".babelrc": true, ".babelrc.js": true,
	"index.html": true, "favicon.ico": true, "robots.txt": true, "sitemap.xml": true,
	"jest.config.js": true, "jest.config.ts": true, "karma.conf.js": true, "mocha.opts": true,
	"vitest.config.ts": true, "cypress.config.js": true, "cypress.json": true,
	"yarn-error.log": true, "npm-debug.log": true,

	// editor and VCS metadata
	".editorconfig": true, ".gitignore": true, ".gitattributes": true, ".npmrc": true,
	".nvmrc": true, ".dockerignore": true, ".DS_Store": true, "Thumbs.db": true, "desktop.ini": true,

	// environment files
	".env": true, ".env.local": true, ".env.development": true, ".env.production": true, ".env.test": true,

	// deployment and CI
	"vercel.json": true, "netlify.toml": true, "now.json": true, "firebase.json": true,
	"azure-pipelines.yml": true, "Procfile": true, "Makefile": true, "Dockerfile": true,
	"docker-compose.yml": true, ".travis.yml": true, ".circleci/config.yml": true,
	".github/workflows/main.yml": true, ".gitlab-ci.yml": true, "cloudbuild.yaml": true,
	"terraform.tf": true, "terraform.tfvars": true, ".helmignore": true, "Chart.yaml": true,
	"values.yaml": true, "kustomization.yaml": true, "skaffold.yaml": true,

	// project documents
	"README.md": true, "README": true, "CONTRIBUTING.md": true, "CHANGELOG.md": true,
	"CODEOWNERS": true, "LICENSE": true, "LICENSE.md": true, "SECURITY.md": true,
	"SUPPORT.md": true, "NOTICE": true, "AUTHORS": true,

	// Python packaging and linters
	".coveragerc": true, "tox.ini": true, "pytest.ini": true, "setup.cfg": true,
	"requirements.txt": true, "Pipfile": true, "Pipfile.lock": true, "pyproject.toml": true,
	"setup.py": true, "MANIFEST.in": true, "environment.yml": true, "conda.yml": true,
	".python-version": true, ".pylintrc": true, "mypy.ini": true, "pyrightconfig.json": true,
	".flake8": true, ".isort.cfg": true, "poetry.lock": true, "poetry.toml": true,

	// ML artifacts
	"dvc.yaml": true, "dvc.lock": true, "output.log": true, "tensorboard.log": true,
	"snapshot.txt": true,
}

// excludedPatterns are path.Match patterns applied to base names.
var excludedPatterns = []string{
	"events.out.tfevents.*",
	"*.ipynb",
	"*.tfstate",
	"*.tfstate.backup",
}

func isExcludedFolder(name string) bool {
	return excludedFolders[name]
}

// isExcludedFile reports whether rel, a slash-separated path relative to
// the project root, names a denylisted file.
func isExcludedFile(rel string) bool {
	if excludedFiles[rel] {
		return true
	}
	base := path.Base(rel)
	if excludedFiles[base] {
		return true
	}
	for _, pattern := range excludedPatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// isVirtualEnv reports whether dir looks like a Python virtual environment:
// it holds pyvenv.cfg, or an interpreter folder (bin or Scripts) next to a
// library folder (lib or Include).
func isVirtualEnv(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	if names["pyvenv.cfg"] {
		return true
	}
	return (names["bin"] || names["Scripts"]) && (names["lib"] || names["Include"])
}

// toSlashRel returns target relative to root with forward slashes.
func toSlashRel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(filepath.ToSlash(rel), "./"), nil
}
