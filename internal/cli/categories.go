package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dontoisme/zeroed/internal/core"
)

const categoriesUsage = `Usage:
  zeroed categories list [--hidden]
  zeroed categories create <name> --group <group>
  zeroed categories create-group <name>
  zeroed categories rename <name> <new-name>
  zeroed categories hide <name>
  zeroed categories unhide <name>
`

func (a *App) runCategories(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, categoriesUsage)
		return nil
	}

	switch args[0] {
	case "list":
		return a.categoriesList(ctx, args[1:])
	case "create":
		return a.categoriesCreate(ctx, args[1:])
	case "create-group":
		return a.categoriesCreateGroup(ctx, args[1:])
	case "rename":
		return a.categoriesRename(ctx, args[1:])
	case "hide":
		return a.categoriesSetHidden(ctx, args[1:], true)
	case "unhide":
		return a.categoriesSetHidden(ctx, args[1:], false)
	}
	fmt.Fprint(a.out, categoriesUsage)
	return fmt.Errorf("unknown categories subcommand %q", args[0])
}

func (a *App) categoriesList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("categories list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	hidden := fs.Bool("hidden", false, "include hidden groups and categories")
	if err := fs.Parse(args); err != nil {
		return err
	}

	groups, err := a.store.ListCategoryGroups(ctx, *hidden)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No category groups found.")
		return nil
	}

	for _, group := range groups {
		fmt.Fprintf(a.out, "%s\n", group.Name)
		categories, err := a.store.ListCategories(ctx, group.ID, *hidden)
		if err != nil {
			return err
		}
		for _, cat := range categories {
			suffix := ""
			if cat.Hidden {
				suffix = " (hidden)"
			}
			fmt.Fprintf(a.out, "  %s%s\n", cat.Name, suffix)
		}
	}
	return nil
}

func (a *App) categoriesCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("categories create", flag.ContinueOnError)
	fs.SetOutput(a.out)
	groupName := fs.String("group", "", "category group name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *groupName == "" {
		fmt.Fprint(a.out, categoriesUsage)
		return fmt.Errorf("categories create needs a name and --group")
	}

	groups, err := a.store.ListCategoryGroups(ctx, true)
	if err != nil {
		return err
	}
	var group *core.CategoryGroup
	for i := range groups {
		if containsFold(groups[i].Name, *groupName) {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return fmt.Errorf("group %q: %w", *groupName, core.ErrNotFound)
	}

	category := &core.Category{GroupID: group.ID, Name: fs.Arg(0)}
	if err := a.store.CreateCategory(ctx, category); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created category %q in group %q\n", category.Name, group.Name)
	return nil
}

func (a *App) categoriesCreateGroup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, categoriesUsage)
		return fmt.Errorf("categories create-group needs exactly one name")
	}

	group := &core.CategoryGroup{Name: args[0]}
	if err := a.store.CreateCategoryGroup(ctx, group); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created category group %q\n", group.Name)
	return nil
}

func (a *App) categoriesRename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprint(a.out, categoriesUsage)
		return fmt.Errorf("categories rename needs a name and a new name")
	}

	category, err := a.requireCategory(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.store.RenameCategory(ctx, category.ID, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %q to %q\n", category.Name, args[1])
	return nil
}

func (a *App) categoriesSetHidden(ctx context.Context, args []string, hidden bool) error {
	if len(args) != 1 {
		fmt.Fprint(a.out, categoriesUsage)
		return fmt.Errorf("needs exactly one category name")
	}

	category, err := a.requireCategory(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.store.SetCategoryHidden(ctx, category.ID, hidden); err != nil {
		return err
	}
	verb := "Hid"
	if !hidden {
		verb = "Unhid"
	}
	fmt.Fprintf(a.out, "%s category %q\n", verb, category.Name)
	return nil
}

func (a *App) requireCategory(ctx context.Context, name string) (*core.Category, error) {
	category, err := a.store.FindCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
	}
	return category, nil
}
